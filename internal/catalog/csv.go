package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ParseWarning describes an apps.csv row that was skipped or kept with a problem
type ParseWarning struct {
	Line   int
	Name   string
	Reason string
}

func (w ParseWarning) Error() string {
	if w.Name != "" {
		return fmt.Sprintf("apps.csv line %d (%s): %s", w.Line, w.Name, w.Reason)
	}
	return fmt.Sprintf("apps.csv line %d: %s", w.Line, w.Reason)
}

// Load parses apps.csv content. Malformed rows are skipped and reported as
// warnings so a partially corrupt catalog still loads its valid rows; only an
// unreadable stream is an error.
func Load(data []byte, logger *zap.Logger) (Store, []ParseWarning, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := newReader(data)
	var (
		entries  []Entry
		warnings []ParseWarning
		seen     = make(map[string]bool)
	)

	warn := func(w ParseWarning) {
		logger.Warn("skipping catalog row", zap.Int("line", w.Line), zap.String("name", w.Name), zap.String("reason", w.Reason))
		warnings = append(warnings, w)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				warn(ParseWarning{Line: pe.StartLine, Reason: pe.Err.Error()})
				continue
			}
			return Store{}, warnings, fmt.Errorf("failed to read catalog: %w", err)
		}
		line, _ := r.FieldPos(0)

		e, err := parseRow(row)
		if err != nil {
			warn(ParseWarning{Line: line, Name: row[0], Reason: err.Error()})
			continue
		}
		if seen[e.Name] {
			warn(ParseWarning{Line: line, Name: e.Name, Reason: "duplicate name"})
			continue
		}
		seen[e.Name] = true
		entries = append(entries, e)
	}

	s := fromEntries(entries)
	for _, w := range s.integrityWarnings() {
		logger.Warn("catalog integrity", zap.String("name", w.Name), zap.String("reason", w.Reason))
		warnings = append(warnings, w)
	}
	return s, warnings, nil
}

// Serialize renders the store as apps.csv content, one row per entry in order
func (s Store) Serialize() ([]byte, error) {
	rows := make([][]string, 0, len(s.entries))
	for _, e := range s.entries {
		rows = append(rows, e.row())
	}
	return WriteRows(rows)
}

// ReadRows parses apps.csv content into raw rows without interpreting them
func ReadRows(data []byte) ([][]string, error) {
	rows, err := newReader(data).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

// WriteRows renders raw rows with the apps.csv dialect: comma separated,
// CRLF line endings, and a field is quoted only when it holds a comma, a
// double quote or a line break. Leading spaces stay bare, unlike
// csv.Writer.
func WriteRows(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	for _, row := range rows {
		if len(row) == 1 && row[0] == "" {
			buf.WriteString(`""`)
		}
		for i, field := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			if !strings.ContainsAny(field, ",\"\r\n") {
				buf.WriteString(field)
				continue
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
		buf.WriteString("\r\n")
	}
	return buf.Bytes(), nil
}

func newReader(data []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	return r
}
