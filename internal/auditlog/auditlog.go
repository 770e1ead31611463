// Package auditlog appends one CSV row per classification decision so every
// announcement that reached the classifier leaves a durable trace.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/kpraghav/orderwatch/internal/types"
)

var header = []string{"Timestamp", "Company", "ScripCode", "Impact", "AlertSent", "TokensUsed", "Note"}

const timestampLayout = "2006-01-02 15:04:05"

// Logger appends audit records to a CSV file, writing the header row when
// the file is new or empty.
type Logger struct {
	path string
}

// NewLogger returns a Logger for the given CSV path. The file is created on
// the first Append.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Append writes one record to the audit file. Errors are returned to the
// caller; a record that cannot be written must stop the commit.
func (l *Logger) Append(rec types.AuditRecord) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat audit log %s: %w", l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write audit log header: %w", err)
		}
	}

	row := []string{
		rec.Timestamp.Format(timestampLayout),
		rec.Company,
		rec.ScripCode,
		rec.Impact,
		strconv.FormatBool(rec.AlertSent),
		strconv.Itoa(rec.TokensUsed),
		rec.Note,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write audit log row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}
