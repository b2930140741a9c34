// Package capture runs the sampling loop: one tick captures the screen, skips frames that
// did not change, asks the analyzer what is on screen, persists the result and raises
// alerts for detected issues.
package capture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"image"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/phash"
	"github.com/m-mizutani/glimpse/pkg/usecase/alert"
	"github.com/m-mizutani/glimpse/pkg/usecase/analysis"
	"github.com/m-mizutani/glimpse/pkg/usecase/record"
	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/analyze.md
var analyzePromptRaw string

var analyzePromptTmpl = template.Must(template.New("analyze").Parse(analyzePromptRaw))

//go:embed prompt/suggest.md
var suggestPromptRaw string

var suggestPromptTmpl = template.Must(template.New("suggest").Parse(suggestPromptRaw))

const (
	suggestQuestion    = "基于以上信息给出 1-3 条可执行的解决建议，尽量具体，不要复述背景。"
	suggestionFallback = "建议生成失败，请查看详情或稍后重试。"
	unclassifiedIssue  = "未分类"

	artifactTimeLayout = "20060102-150405"
	alertLogPrefix     = "assistant-alert"
	modelErrorSource   = "capture"
)

var (
	ErrCaptureFailed  = goerr.New("failed to capture screen")
	ErrAnalyzerFailed = goerr.New("analyzer call failed")
)

// Pipeline holds the collaborators of a tick. Artifacts, emitter and sink are optional.
type Pipeline struct {
	capturer  adapter.Capturer
	analyzer  adapter.Analyzer
	store     *record.Store
	retriever *retrieve.Retriever
	parser    *analysis.Parser
	catalog   *catalog.Catalog
	gate      *alert.Gate
	differ    *phash.Differ

	artifacts adapter.Artifacts
	emitter   adapter.Emitter
	sink      adapter.RecordSink

	cfg model.CaptureConfig
	now func() time.Time
}

type Option func(*Pipeline)

// WithArtifacts stores screenshots and alert log snapshots.
func WithArtifacts(a adapter.Artifacts) Option {
	return func(p *Pipeline) {
		p.artifacts = a
	}
}

func WithEmitter(e adapter.Emitter) Option {
	return func(p *Pipeline) {
		p.emitter = e
	}
}

// WithSink exports every persisted record.
func WithSink(s adapter.RecordSink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(p *Pipeline) {
		p.catalog = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a Pipeline. The gate decides alerts; retriever supplies the recent
// context included in the analysis prompt.
func NewPipeline(capturer adapter.Capturer, analyzer adapter.Analyzer, store *record.Store, retriever *retrieve.Retriever, gate *alert.Gate, cfg model.CaptureConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		capturer:  capturer,
		analyzer:  analyzer,
		store:     store,
		retriever: retriever,
		gate:      gate,
		catalog:   catalog.Default(),
		differ:    phash.NewDiffer(cfg.ChangeThreshold),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = analysis.NewParser(p.catalog)
	return p
}

// Reset forgets the previous frame so the next tick is always analyzed.
func (p *Pipeline) Reset() {
	p.differ.Reset()
}

// Tick runs one sampling iteration. It returns analyzed=false with a nil error when the
// frame was skipped as unchanged.
func (p *Pipeline) Tick(ctx context.Context) (bool, error) {
	logger := logging.From(ctx)

	img, err := p.capturer.Capture(ctx)
	if err != nil {
		return false, goerr.Wrap(ErrCaptureFailed, err.Error())
	}
	now := p.now()

	detailRef := p.saveScreenshot(ctx, img, now)

	if p.cfg.SkipUnchanged {
		if skip, similarity := p.differ.Check(phash.Hash(img)); skip {
			logger.Debug("frame unchanged, skipped", "similarity", similarity)
			return false, nil
		}
	}

	b64, err := adapter.EncodeBase64(img, p.cfg.CompressQuality)
	if err != nil {
		return false, err
	}

	recent := p.retriever.RecentContext(ctx, p.cfg.RecentSummaryLimit, p.cfg.RecentDetailLimit)

	var prompt bytes.Buffer
	if err := analyzePromptTmpl.Execute(&prompt, map[string]any{
		"RecentContext": recent,
	}); err != nil {
		return false, goerr.Wrap(err, "failed to execute analyze prompt template")
	}

	raw, err := p.analyzer.AnalyzeImage(ctx, b64, prompt.String())
	if err != nil {
		p.reportModelError(ctx, err, now)
		return false, goerr.Wrap(ErrAnalyzerFailed, err.Error())
	}

	result := p.parser.Parse(raw)
	decision := p.gate.Decide(ctx, result, now)
	logger.Debug("analysis parsed",
		"app", result.App,
		"has_issue", result.HasIssue,
		"confidence", result.Confidence,
		"alert", decision.Reason,
	)

	if decision.Emit && strings.TrimSpace(result.Suggestion) == "" {
		result.Suggestion = p.suggest(ctx, result, recent)
	}

	rec := &model.SummaryRecord{
		Timestamp:    model.FormatTimestamp(now),
		Summary:      result.Summary,
		App:          result.App,
		Action:       result.Action(),
		Keywords:     analysis.ExtractKeywords(p.catalog, result.Summary),
		HasIssue:     result.HasIssue,
		IssueType:    result.IssueType,
		IssueSummary: result.IssueText(),
		Suggestion:   result.Suggestion,
		Confidence:   result.Confidence,
		Detail:       result.Detail,
		DetailRef:    detailRef,
	}
	if !result.HasIssue {
		rec.IssueSummary = ""
	}

	if _, err := p.store.Append(ctx, rec); err != nil {
		return false, err
	}

	if p.sink != nil {
		if err := p.sink.Put(ctx, rec); err != nil {
			logger.Warn("failed to export record", "error", err)
		}
	}

	if decision.Emit {
		p.raiseAlert(ctx, result, now)
	}

	return true, nil
}

// artifactStamp formats now as YYYYMMDD-HHMMSS-mmm.
func artifactStamp(now time.Time) string {
	return now.Format(artifactTimeLayout) + fmt.Sprintf("-%03d", now.Nanosecond()/int(time.Millisecond))
}

// ScreenshotKey is the artifact key of the screenshot taken at now.
func ScreenshotKey(now time.Time) string {
	return "screenshots/" + artifactStamp(now) + ".jpg"
}

// LogSnapshotKey is the artifact key of a log snapshot taken at now.
func LogSnapshotKey(now time.Time, prefix string) string {
	return "logs/" + artifactStamp(now) + "-" + SanitizeLogPrefix(prefix) + ".log"
}

// SanitizeLogPrefix keeps ASCII letters, digits, '-' and '_'. An empty result becomes "log".
func SanitizeLogPrefix(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "log"
	}
	return b.String()
}

func (p *Pipeline) writeArtifact(ctx context.Context, key string, write func(io.Writer) error) error {
	w, err := p.artifacts.Put(ctx, key)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write artifact", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close artifact", goerr.V("key", key))
	}
	return nil
}

// saveScreenshot returns the artifact key, or "" when nothing was stored.
func (p *Pipeline) saveScreenshot(ctx context.Context, img image.Image, now time.Time) string {
	if p.artifacts == nil {
		return ""
	}

	key := ScreenshotKey(now)
	err := p.writeArtifact(ctx, key, func(w io.Writer) error {
		data, err := adapter.EncodeJPEG(img, p.cfg.CompressQuality)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		logging.From(ctx).Warn("failed to save screenshot", "error", err)
		return ""
	}
	return key
}

func (p *Pipeline) suggest(ctx context.Context, r *model.AnalysisResult, recent string) string {
	issueType := r.IssueType
	if issueType == "" {
		issueType = unclassifiedIssue
	}

	var background bytes.Buffer
	if err := suggestPromptTmpl.Execute(&background, map[string]any{
		"Summary":       r.Summary,
		"Detail":        r.Detail,
		"IssueType":     issueType,
		"IssueSummary":  r.IssueText(),
		"Confidence":    r.Confidence,
		"RecentContext": recent,
	}); err != nil {
		logging.From(ctx).Warn("failed to execute suggest prompt template", "error", err)
		return suggestionFallback
	}

	resp, err := p.analyzer.Chat(ctx, background.String(), suggestQuestion)
	if err != nil || strings.TrimSpace(resp) == "" {
		logging.From(ctx).Warn("failed to generate suggestion", "error", err)
		return suggestionFallback
	}
	return strings.TrimSpace(resp)
}

func (p *Pipeline) raiseAlert(ctx context.Context, r *model.AnalysisResult, now time.Time) {
	logger := logging.From(ctx)

	payload := &model.AssistantAlert{
		Timestamp:  model.FormatTimestamp(now),
		IssueType:  r.IssueType,
		Message:    r.IssueText(),
		Suggestion: r.Suggestion,
	}

	if p.artifacts != nil {
		key := LogSnapshotKey(now, alertLogPrefix)
		err := p.writeArtifact(ctx, key, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "time: %s\nissue_type: %s\nmessage: %s\nsuggestion: %s\nconfidence: %.2f\nthreshold: %.2f\n",
				payload.Timestamp, payload.IssueType, payload.Message, payload.Suggestion,
				r.Confidence, p.cfg.AlertConfidenceThreshold)
			return err
		})
		if err != nil {
			logger.Warn("failed to write alert log snapshot", "error", err)
		}
	}

	logger.Info("assistant alert", "issue_type", payload.IssueType, "message", payload.Message)
	p.emit(ctx, model.EventAssistantAlert, payload)
}

func (p *Pipeline) reportModelError(ctx context.Context, cause error, now time.Time) {
	a := analysis.BuildModelErrorAlert(cause.Error(), modelErrorSource, now)
	logging.From(ctx).Warn("analyzer failed", "error_type", a.ErrorType, "error", cause)
	if !p.gate.EmitModelError(a, now) {
		return
	}
	p.emit(ctx, model.EventModelError, a)
}

func (p *Pipeline) emit(ctx context.Context, event string, payload any) {
	if p.emitter == nil {
		return
	}
	if err := p.emitter.Emit(ctx, event, payload); err != nil {
		logging.From(ctx).Warn("failed to emit event", "event", event, "error", err)
	}
}
