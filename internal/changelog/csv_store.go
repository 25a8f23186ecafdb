package changelog

import (
	"context"
	"fmt"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/exporter"
)

// CSVStore rewrites the whole session log into a daily CSV file.
type CSVStore struct {
	writer *exporter.CSVWriter
	path   func(time.Time) string
	now    func() time.Time
}

// NewCSVStore creates a store writing to path(now).
func NewCSVStore(writer *exporter.CSVWriter, path func(time.Time) string) *CSVStore {
	return &CSVStore{writer: writer, path: path, now: time.Now}
}

// Save writes the log with a UTF-8 BOM so spreadsheets pick up Hangul.
func (s *CSVStore) Save(ctx context.Context, log *Log) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(s.now())
	if err := s.writer.WriteSimpleCSV(path, log.Header(), log.Records()); err != nil {
		return fmt.Errorf("failed to write change log %s: %w", path, err)
	}
	return nil
}

// Close is a no-op.
func (s *CSVStore) Close() error { return nil }
