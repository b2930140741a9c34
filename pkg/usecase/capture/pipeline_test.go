package capture_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/repository"
	"github.com/m-mizutani/glimpse/pkg/usecase/alert"
	"github.com/m-mizutani/glimpse/pkg/usecase/capture"
	"github.com/m-mizutani/glimpse/pkg/usecase/record"
	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/gt"
)

func solidImage(v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func splitImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 32; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

type fakeCapturer struct {
	mu     sync.Mutex
	frames []image.Image
	n      int
	err    error
}

func (x *fakeCapturer) Capture(ctx context.Context) (image.Image, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return nil, x.err
	}
	img := x.frames[x.n%len(x.frames)]
	x.n++
	return img, nil
}

type fakeAnalyzer struct {
	mu         sync.Mutex
	reply      string
	err        error
	chatReply  string
	chatErr    error
	analyzed   int
	chats      int
	lastPrompt string
}

func (x *fakeAnalyzer) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.analyzed++
	x.lastPrompt = prompt
	return x.reply, x.err
}

func (x *fakeAnalyzer) Chat(ctx context.Context, background, question string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.chats++
	return x.chatReply, x.chatErr
}

type emitted struct {
	event   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (x *recorder) Emit(ctx context.Context, event string, payload any) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, emitted{event: event, payload: payload})
	return nil
}

func (x *recorder) byEvent(event string) []emitted {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []emitted
	for _, e := range x.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	capturer *fakeCapturer
	analyzer *fakeAnalyzer
	events   *recorder
	store    *record.Store
	now      time.Time
	pipeline *capture.Pipeline
}

const (
	quietReply = `{"summary":"在 VS Code 中编辑 main.go","detail":"编辑器显示 Go 代码","app":"Visual Studio Code","has_issue":false,"confidence":0.9}`
	issueReply = `{"summary":"go build 失败","detail":"终端显示 undefined: foo","app":"Terminal","has_issue":true,"issue_type":"编译错误","issue_summary":"undefined: foo","suggestion":"","confidence":0.9}`
)

func newFixture(t *testing.T, cfg model.CaptureConfig, opts ...capture.Option) *fixture {
	t.Helper()
	f := &fixture{
		capturer: &fakeCapturer{frames: []image.Image{solidImage(0)}},
		analyzer: &fakeAnalyzer{reply: quietReply},
		events:   &recorder{},
		store:    record.New(repository.NewMemory()),
		now:      time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local),
	}
	clock := func() time.Time { return f.now }
	gate := alert.NewGate(alert.NewDeduplicator(), cfg.AlertConfidenceThreshold, cfg.AlertCooldown())

	opts = append([]capture.Option{
		capture.WithEmitter(f.events),
		capture.WithClock(clock),
	}, opts...)
	f.pipeline = capture.NewPipeline(
		f.capturer,
		f.analyzer,
		f.store,
		retrieve.New(f.store, retrieve.WithClock(clock)),
		gate,
		cfg,
		opts...,
	)
	return f
}

func (f *fixture) tick(t *testing.T) (bool, error) {
	t.Helper()
	analyzed, err := f.pipeline.Tick(context.Background())
	f.now = f.now.Add(time.Second)
	return analyzed, err
}

func (f *fixture) records(t *testing.T) []model.SummaryRecord {
	t.Helper()
	records, err := f.store.ReadDay(context.Background(), "2025-01-02")
	gt.NoError(t, err)
	return records
}

func TestTickSkipsUnchangedFrames(t *testing.T) {
	f := newFixture(t, model.DefaultConfig().Capture)

	analyzed, err := f.tick(t)
	gt.NoError(t, err)
	gt.True(t, analyzed)

	analyzed, err = f.tick(t)
	gt.NoError(t, err)
	gt.False(t, analyzed)
	gt.Equal(t, f.analyzer.analyzed, 1)
	gt.A(t, f.records(t)).Length(1)

	f.capturer.frames = []image.Image{splitImage()}
	analyzed, err = f.tick(t)
	gt.NoError(t, err)
	gt.True(t, analyzed)
	gt.A(t, f.records(t)).Length(2)
}

func TestTickResetAnalyzesNextFrame(t *testing.T) {
	f := newFixture(t, model.DefaultConfig().Capture)

	_, err := f.tick(t)
	gt.NoError(t, err)

	f.pipeline.Reset()
	analyzed, err := f.tick(t)
	gt.NoError(t, err)
	gt.True(t, analyzed)
}

func TestTickWithoutSkipAnalyzesEveryFrame(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	cfg.SkipUnchanged = false
	f := newFixture(t, cfg)

	for i := 0; i < 3; i++ {
		analyzed, err := f.tick(t)
		gt.NoError(t, err)
		gt.True(t, analyzed)
	}
	gt.A(t, f.records(t)).Length(3)
}

func TestTickPersistsRecord(t *testing.T) {
	f := newFixture(t, model.DefaultConfig().Capture)

	_, err := f.tick(t)
	gt.NoError(t, err)

	records := f.records(t)
	gt.A(t, records).Length(1)
	rec := records[0]
	gt.Equal(t, rec.Timestamp, "2025-01-02T10:00:00")
	gt.Equal(t, rec.App, "Visual Studio Code")
	gt.Equal(t, rec.Action, model.ActionActive)
	gt.False(t, rec.HasIssue)
	gt.Equal(t, rec.IssueSummary, "")
	gt.Equal(t, rec.DetailRef, "")
	gt.A(t, rec.Keywords).Length(1)
	gt.Equal(t, rec.Keywords[0], "编辑")

	gt.A(t, f.events.byEvent(model.EventAssistantAlert)).Length(0)
}

func TestTickIncludesRecentContext(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	cfg.SkipUnchanged = false
	f := newFixture(t, cfg)

	_, err := f.tick(t)
	gt.NoError(t, err)
	gt.S(t, f.analyzer.lastPrompt).Contains("（无）")

	_, err = f.tick(t)
	gt.NoError(t, err)
	gt.S(t, f.analyzer.lastPrompt).Contains("10:00:00 [Visual Studio Code] 在 VS Code 中编辑 main.go")
}

func TestTickAlertWithLazySuggestion(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	cfg.SkipUnchanged = false
	f := newFixture(t, cfg)
	f.analyzer.reply = issueReply
	f.analyzer.chatReply = "检查 foo 是否已声明"

	_, err := f.tick(t)
	gt.NoError(t, err)

	alerts := f.events.byEvent(model.EventAssistantAlert)
	gt.A(t, alerts).Length(1)
	payload, ok := alerts[0].payload.(*model.AssistantAlert)
	gt.True(t, ok)
	gt.Equal(t, payload.IssueType, "编译错误")
	gt.Equal(t, payload.Message, "undefined: foo")
	gt.Equal(t, payload.Suggestion, "检查 foo 是否已声明")
	gt.Equal(t, f.analyzer.chats, 1)
	// the alert carries its record's timestamp
	gt.Equal(t, payload.Timestamp, f.records(t)[0].Timestamp)
	gt.Equal(t, payload.Timestamp, "2025-01-02T10:00:00")

	records := f.records(t)
	gt.Equal(t, records[0].Action, model.ActionIssue)
	gt.Equal(t, records[0].Suggestion, "检查 foo 是否已声明")

	// same issue again: suppressed as the last issue, no second suggestion call
	_, err = f.tick(t)
	gt.NoError(t, err)
	gt.A(t, f.events.byEvent(model.EventAssistantAlert)).Length(1)
	gt.Equal(t, f.analyzer.chats, 1)
	gt.Equal(t, f.records(t)[1].Suggestion, "")
}

func TestTickSuggestionFallback(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	f := newFixture(t, cfg)
	f.analyzer.reply = issueReply
	f.analyzer.chatErr = errors.New("connection refused")

	_, err := f.tick(t)
	gt.NoError(t, err)

	alerts := f.events.byEvent(model.EventAssistantAlert)
	gt.A(t, alerts).Length(1)
	gt.Equal(t, alerts[0].payload.(*model.AssistantAlert).Suggestion, "建议生成失败，请查看详情或稍后重试。")
}

func TestTickLowConfidenceIssueIsNotAlerted(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	f := newFixture(t, cfg)
	f.analyzer.reply = strings.Replace(issueReply, `"confidence":0.9`, `"confidence":0.3`, 1)

	_, err := f.tick(t)
	gt.NoError(t, err)
	gt.A(t, f.events.byEvent(model.EventAssistantAlert)).Length(0)
	gt.Equal(t, f.analyzer.chats, 0)
	gt.True(t, f.records(t)[0].HasIssue)
}

func TestTickAnalyzerFailure(t *testing.T) {
	cfg := model.DefaultConfig().Capture
	cfg.SkipUnchanged = false
	f := newFixture(t, cfg)
	f.analyzer.err = errors.New("status 429: Too Many Requests")

	for i := 0; i < 3; i++ {
		analyzed, err := f.tick(t)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, capture.ErrAnalyzerFailed))
		gt.False(t, analyzed)
	}

	errs := f.events.byEvent(model.EventModelError)
	gt.A(t, errs).Length(1)
	payload, ok := errs[0].payload.(*model.ModelErrorAlert)
	gt.True(t, ok)
	gt.Equal(t, payload.ErrorType, model.ModelErrorRateLimit)
	gt.Equal(t, payload.Source, "capture")
	gt.A(t, f.records(t)).Length(0)
}

func TestTickCaptureFailure(t *testing.T) {
	f := newFixture(t, model.DefaultConfig().Capture)
	f.capturer.err = errors.New("no display")

	_, err := f.tick(t)
	gt.True(t, errors.Is(err, capture.ErrCaptureFailed))
	gt.Equal(t, f.analyzer.analyzed, 0)
}

func TestTickArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := model.DefaultConfig().Capture
	f := newFixture(t, cfg, capture.WithArtifacts(adapter.NewLocalArtifacts(dir)))
	f.now = time.Date(2025, 1, 2, 10, 0, 0, 123_000_000, time.Local)
	f.analyzer.reply = issueReply
	f.analyzer.chatReply = "声明 foo"

	_, err := f.tick(t)
	gt.NoError(t, err)

	rec := f.records(t)[0]
	gt.Equal(t, rec.DetailRef, "screenshots/20250102-100000-123.jpg")
	_, err = os.Stat(filepath.Join(dir, "screenshots", "20250102-100000-123.jpg"))
	gt.NoError(t, err)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "*-assistant-alert.log"))
	gt.NoError(t, err)
	gt.A(t, logs).Length(1)
	body, err := os.ReadFile(logs[0])
	gt.NoError(t, err)
	gt.S(t, string(body)).Contains("issue_type: 编译错误")
	gt.S(t, string(body)).Contains("suggestion: 声明 foo")
	gt.S(t, string(body)).Contains("threshold: 0.60")
}

func TestSanitizeLogPrefix(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"assistant-alert", "assistant-alert"},
		{"a b/c..d", "abcd"},
		{"", "log"},
		{"x_1", "x_1"},
	}
	for _, tc := range testCases {
		gt.Equal(t, capture.SanitizeLogPrefix(tc.in), tc.want)
	}

	gt.Equal(t, capture.SanitizeLogPrefix("报警"), "log")
}

func TestArtifactKeys(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	gt.Equal(t, capture.ScreenshotKey(now), "screenshots/20250304-050607-008.jpg")
	gt.Equal(t, capture.LogSnapshotKey(now, "../x"), "logs/20250304-050607-008-x.log")
}
