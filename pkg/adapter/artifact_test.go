package adapter_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestLocalArtifacts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := adapter.NewLocalArtifacts(root)

	w, err := store.Put(ctx, "logs/20250101-120000-000-assistant-alert.log")
	gt.NoError(t, err)
	_, err = w.Write([]byte("time: now\n"))
	gt.NoError(t, err)
	gt.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(root, "logs", "20250101-120000-000-assistant-alert.log"))
	gt.NoError(t, err)
	gt.V(t, string(data)).Equal("time: now\n")

	r, err := store.Get(ctx, "logs/20250101-120000-000-assistant-alert.log")
	gt.NoError(t, err)
	got, err := io.ReadAll(r)
	gt.NoError(t, err)
	gt.NoError(t, r.Close())
	gt.V(t, string(got)).Equal("time: now\n")

	_, err = store.Put(ctx, "../escape.txt")
	gt.Error(t, err)
	_, err = store.Put(ctx, "/abs.txt")
	gt.Error(t, err)
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	b64, err := adapter.EncodeBase64(img, 80)
	gt.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	gt.NoError(t, err)
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	gt.NoError(t, err)
	gt.V(t, decoded.Bounds()).Equal(img.Bounds())
}

func TestStreamEmitter(t *testing.T) {
	buf := &bytes.Buffer{}
	e := adapter.NewStreamEmitter(buf)

	gt.NoError(t, e.Emit(context.Background(), model.EventAssistantAlert, &model.AssistantAlert{
		Timestamp: "2025-01-01T12:00:00",
		IssueType: "编译错误",
		Message:   "cannot find module",
	}))

	var got map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	gt.V(t, got["event"]).Equal("assistant-alert")
	payload := got["payload"].(map[string]any)
	gt.V(t, payload["issue_type"]).Equal("编译错误")
	gt.V(t, payload["suggestion"]).Equal("")
}

func TestScreen(t *testing.T) {
	if os.Getenv("TEST_SCREEN_CAPTURE") == "" {
		t.Skip("TEST_SCREEN_CAPTURE is not set")
	}

	img, err := adapter.NewScreen(0).Capture(context.Background())
	gt.NoError(t, err)
	gt.True(t, img.Bounds().Dx() > 0)
}

func TestBigQuerySink(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	datasetID := os.Getenv("TEST_BIGQUERY_DATASET")
	table := os.Getenv("TEST_BIGQUERY_TABLE")
	if projectID == "" || datasetID == "" || table == "" {
		t.Skip("TEST_BIGQUERY_PROJECT, TEST_BIGQUERY_DATASET and TEST_BIGQUERY_TABLE must be set")
	}

	ctx := context.Background()
	sink, err := adapter.NewBigQuerySink(ctx, projectID, datasetID, table)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	gt.NoError(t, sink.EnsureTable(ctx))
	gt.NoError(t, sink.Put(ctx, &model.SummaryRecord{
		Timestamp: "2025-01-01T12:00:00",
		Summary:   "test record",
		App:       "Terminal",
		Action:    model.ActionActive,
	}))
}
