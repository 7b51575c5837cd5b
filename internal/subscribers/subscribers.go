// Package subscribers resolves the digest mailing list from the responses of
// the published subscription form.
package subscribers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// ChoiceSubscribe is the form answer that opts an address in.
const ChoiceSubscribe = "subscribe"

// Column positions in the exported sheet. Column 0 is the form timestamp.
const (
	colEmail  = 1
	colChoice = 2
	minCols   = colChoice + 1
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// Row is one form response, in submission order.
type Row struct {
	Email  string
	Choice string
}

// ValidEmail reports whether addr looks like an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// ParseCSV reads the sheet export. The first record is a header and is
// skipped. Records with fewer than three columns are logged and skipped.
func ParseCSV(r io.Reader, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []Row
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++
		if line == 1 {
			continue
		}
		if len(rec) < minCols {
			logger.Warn("subscribers: skipping short row", "row", line, "columns", len(rec))
			continue
		}
		rows = append(rows, Row{Email: rec[colEmail], Choice: rec[colChoice]})
	}
	return rows, nil
}

// Resolve returns the subscribed addresses, lower-cased and sorted. Rows are
// walked newest first: the newest answer of an address decides, and an
// address whose newest answer is not a valid subscription is never added.
func Resolve(rows []Row) []string {
	valid := make(map[string]struct{})
	excluded := make(map[string]struct{})
	for i := len(rows) - 1; i >= 0; i-- {
		email := strings.ToLower(strings.TrimSpace(rows[i].Email))
		choice := strings.ToLower(strings.TrimSpace(rows[i].Choice))
		_, isExcluded := excluded[email]
		if ValidEmail(email) && choice == ChoiceSubscribe && !isExcluded {
			valid[email] = struct{}{}
			continue
		}
		excluded[email] = struct{}{}
	}

	out := make([]string, 0, len(valid))
	for email := range valid {
		out = append(out, email)
	}
	slices.Sort(out)
	return out
}
