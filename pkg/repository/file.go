package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// File stores each day as <dir>/<YYYY-MM-DD>.json.
type File struct {
	dir string
}

// NewFile creates a file repository rooted at dir. The directory is created on first
// write.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (r *File) path(date string) string {
	return filepath.Join(r.dir, date+".json")
}

func (r *File) GetDaily(ctx context.Context, date string) (*model.DailySummary, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	path := r.path(date)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewDailySummary(date), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read daily summary", goerr.V("path", path))
	}

	daily := model.NewDailySummary(date)
	if err := json.Unmarshal(data, daily); err != nil {
		return nil, goerr.Wrap(err, "failed to parse daily summary", goerr.V("path", path))
	}
	if daily.Records == nil {
		daily.Records = []model.SummaryRecord{}
	}
	if daily.Aggregated == nil {
		daily.Aggregated = []model.AggregatedRecord{}
	}

	return daily, nil
}

// PutDaily writes to a temporary file and renames it over the day file, so readers never
// observe a half-written day.
func (r *File) PutDaily(ctx context.Context, daily *model.DailySummary) error {
	if err := validateDate(daily.Date); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create summaries directory", goerr.V("dir", r.dir))
	}

	data, err := json.MarshalIndent(daily, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal daily summary", goerr.V("date", daily.Date))
	}

	tmp, err := os.CreateTemp(r.dir, "."+daily.Date+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("dir", r.dir))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write daily summary", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", tmp.Name()))
	}

	path := r.path(daily.Date)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "failed to replace daily summary", goerr.V("path", path))
	}
	return nil
}
