// Package changelog records operator edits. Entries are append-only and
// de-duplicated by exact match.
package changelog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

// Method is the kind of edit an entry records.
type Method string

const (
	MethodModify Method = "MODIFY"
	MethodDelete Method = "DELETE"
)

// TimestampFormat is the layout of UPDATED_DATE.
const TimestampFormat = "20060102_150405"

// Fixed leading columns of every log record.
const (
	ColumnErrorType   = "ERROR_TYPE"
	ColumnUpdatedDate = "UPDATED_DATE"
	ColumnMethod      = "METHOD"
)

// Entry is one logged row. Values holds the log columns; for MODIFY the
// changed cells read "old > new".
type Entry struct {
	ErrorType   string            `json:"error_type"`
	UpdatedDate string            `json:"updated_date"`
	Method      Method            `json:"method"`
	RowID       int               `json:"unique_id"`
	Values      map[string]string `json:"values"`
}

// Store persists a log.
type Store interface {
	Save(ctx context.Context, log *Log) error
	Close() error
}

// Timestamp formats t as UPDATED_DATE.
func Timestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// NewDelete records the deletion of row.
func NewDelete(errorType string, at time.Time, row domain.ResponseRow, columns []string) Entry {
	values := make(map[string]string, len(columns))
	for _, c := range columns {
		if v, ok := row.Cells[c]; ok {
			values[c] = v
		}
	}
	return Entry{ErrorType: errorType, UpdatedDate: Timestamp(at), Method: MethodDelete, RowID: row.ID, Values: values}
}

// NewModify records the change from before to after. ok is false when none
// of the editable columns changed.
func NewModify(errorType string, at time.Time, before, after domain.ResponseRow, columns, editable []string) (entry Entry, ok bool) {
	entry = NewDelete(errorType, at, before, columns)
	entry.Method = MethodModify
	for _, c := range editable {
		old, now := before.Cells[c], after.Cells[c]
		if old != now {
			entry.Values[c] = old + " > " + now
			ok = true
		}
	}
	return entry, ok
}

// Log is the in-memory change log of a session.
type Log struct {
	mu      sync.RWMutex
	columns []string
	entries []Entry
	seen    map[string]struct{}
}

// NewLog creates an empty log over the given log columns.
func NewLog(columns []string) *Log {
	return &Log{
		columns: append([]string(nil), columns...),
		seen:    make(map[string]struct{}),
	}
}

// Columns returns the log columns after the three fixed ones.
func (l *Log) Columns() []string {
	return append([]string(nil), l.columns...)
}

// Header is the full record header.
func (l *Log) Header() []string {
	return append([]string{ColumnErrorType, ColumnUpdatedDate, ColumnMethod}, l.columns...)
}

// Record renders e in header order.
func (l *Log) Record(e Entry) []string {
	rec := make([]string, 0, len(l.columns)+3)
	rec = append(rec, e.ErrorType, e.UpdatedDate, string(e.Method))
	for _, c := range l.columns {
		rec = append(rec, e.Values[c])
	}
	return rec
}

// Key identifies an entry for de-duplication.
func (l *Log) Key(e Entry) string {
	return strings.Join(l.Record(e), "\x1f")
}

// Append adds entries not already present and returns how many were new.
func (l *Log) Append(entries ...Entry) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, e := range entries {
		key := l.Key(e)
		if _, dup := l.seen[key]; dup {
			continue
		}
		l.seen[key] = struct{}{}
		l.entries = append(l.entries, e)
		added++
	}
	return added
}

// Entries returns a copy of the logged entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Records renders every entry.
func (l *Log) Records() [][]string {
	entries := l.Entries()
	out := make([][]string, len(entries))
	for i, e := range entries {
		out[i] = l.Record(e)
	}
	return out
}
