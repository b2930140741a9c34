package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// TimestampLayout is the layout of SummaryRecord.Timestamp. Records are sorted and
// partitioned by this string, so it must stay lexically ordered.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the layout of a day partition key.
const DateLayout = "2006-01-02"

// UnknownApp is used when the source application cannot be determined.
const UnknownApp = "Unknown"

type Action string

const (
	ActionActive Action = "active"
	ActionIssue  Action = "issue"
	ActionError  Action = "error"
)

// IsTrouble reports whether the action marks a record as an issue or error.
func (a Action) IsTrouble() bool {
	return a == ActionIssue || a == ActionError
}

// SummaryRecord is one analyzed (non-skipped) sample.
type SummaryRecord struct {
	Timestamp    string   `json:"timestamp" firestore:"timestamp" bigquery:"timestamp"`
	Summary      string   `json:"summary" firestore:"summary" bigquery:"summary"`
	App          string   `json:"app" firestore:"app" bigquery:"app"`
	Action       Action   `json:"action" firestore:"action" bigquery:"action"`
	Keywords     []string `json:"keywords" firestore:"keywords" bigquery:"keywords"`
	HasIssue     bool     `json:"has_issue" firestore:"has_issue" bigquery:"has_issue"`
	IssueType    string   `json:"issue_type" firestore:"issue_type" bigquery:"issue_type"`
	IssueSummary string   `json:"issue_summary" firestore:"issue_summary" bigquery:"issue_summary"`
	Suggestion   string   `json:"suggestion" firestore:"suggestion" bigquery:"suggestion"`
	Confidence   float64  `json:"confidence" firestore:"confidence" bigquery:"confidence"`
	Detail       string   `json:"detail" firestore:"detail" bigquery:"detail"`
	DetailRef    string   `json:"detail_ref" firestore:"detail_ref" bigquery:"detail_ref"`
}

// Date returns the partition key of the record, i.e. the first 10 characters of Timestamp.
func (r *SummaryRecord) Date() (string, error) {
	if len(r.Timestamp) < len(DateLayout) {
		return "", goerr.New("timestamp is too short", goerr.V("timestamp", r.Timestamp))
	}
	date := r.Timestamp[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", goerr.Wrap(err, "invalid record date", goerr.V("timestamp", r.Timestamp))
	}
	return date, nil
}

// AggregatedRecord summarizes one batch of raw records within a day.
type AggregatedRecord struct {
	StartTime      string   `json:"start_time" firestore:"start_time"`
	EndTime        string   `json:"end_time" firestore:"end_time"`
	Summary        string   `json:"summary" firestore:"summary"`
	Apps           []string `json:"apps" firestore:"apps"`
	MainActivities []string `json:"main_activities" firestore:"main_activities"`
	Keywords       []string `json:"keywords" firestore:"keywords"`
	RecordCount    int      `json:"record_count" firestore:"record_count"`
	HasErrors      bool     `json:"has_errors" firestore:"has_errors"`
	ErrorSummary   *string  `json:"error_summary" firestore:"error_summary"`
}

// DailySummary is the persisted unit per calendar day.
type DailySummary struct {
	Date       string             `json:"date" firestore:"date"`
	Records    []SummaryRecord    `json:"records" firestore:"records"`
	Aggregated []AggregatedRecord `json:"aggregated" firestore:"aggregated"`
	DaySummary *string            `json:"day_summary" firestore:"day_summary"`
}

// NewDailySummary returns an empty day.
func NewDailySummary(date string) *DailySummary {
	return &DailySummary{
		Date:       date,
		Records:    []SummaryRecord{},
		Aggregated: []AggregatedRecord{},
	}
}

// FormatTimestamp formats t as a record timestamp in t's location.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDate formats t as a day partition key in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
