// Package csv decodes the tabular files inside the daily archives. The
// upstream dialect is deliberately modest: UTF-8, a header line, comma
// separator, double quote as the only quote character with no escaping of
// quotes inside quoted fields. encoding/csv cannot express that last rule,
// so the line splitter is ours.
package csv

import (
	"iter"
	"strings"
)

// Record is one data row keyed by trimmed header token.
type Record map[string]string

// Records lazily yields one Record per data line of text. Empty and
// whitespace-only lines after the header are skipped. Rows shorter than the
// header yield empty strings for the missing columns; extra columns are
// ignored. No type coercion happens here.
func Records(text string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		lines := splitLines(text)
		if len(lines) == 0 {
			return
		}
		header := splitLine(lines[0])
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		if len(header) == 0 {
			return
		}
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) == "" {
				continue
			}
			fields := splitLine(line)
			rec := make(Record, len(header))
			for i, h := range header {
				if h == "" {
					continue
				}
				if i < len(fields) {
					rec[h] = strings.TrimSpace(fields[i])
				} else {
					rec[h] = ""
				}
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// splitLine splits one CSV line on commas, honoring double-quoted fields.
// A quote inside a quoted field ends the quoted region; the upstream never
// doubles quotes.
func splitLine(line string) []string {
	fields := make([]string, 0, 8)
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case inQuotes:
			if r == '"' {
				inQuotes = false
				continue
			}
			current.WriteRune(r)
		case r == '"':
			inQuotes = true
		case r == ',':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// splitLines splits content into lines handling different line endings.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
