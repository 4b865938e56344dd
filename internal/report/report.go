// Package report writes run artifacts to disk. The profile report is the
// JSON serialization of the fact table's statistical profile, written with a
// temp-file-then-rename so readers never observe a partial document.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Renato425636/etl-dados-olist/internal/profile"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// ProfileFileName is the name the fact profile is published under.
const ProfileFileName = "fato_vendas_profile.json"

// Writer persists run artifacts under a directory.
type Writer struct {
	dir string
	log logger.Logger
}

// NewWriter builds a Writer rooted at dir. An empty dir disables writing;
// WriteProfile becomes a logged no-op so runs without a profiling path still
// complete.
func NewWriter(dir string, log logger.Logger) *Writer {
	return &Writer{dir: dir, log: log.Named("report")}
}

// WriteProfile serializes the profile and moves it into place atomically.
// It returns the path written, or "" when writing is disabled.
func (w *Writer) WriteProfile(p profile.Profile) (string, error) {
	if w.dir == "" {
		w.log.Warn("profiling path not configured, skipping profile report")
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", w.dir, err)
	}

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal profile: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(w.dir, ProfileFileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("report: temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("report: write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("report: close profile: %w", err)
	}

	path := filepath.Join(w.dir, ProfileFileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("report: publish profile: %w", err)
	}
	w.log.Info("profile written", logger.String("path", path))
	return path, nil
}
