package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

// timeLayout is fixed width so that TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		// Rows written by hand or older tools may carry RFC 3339.
		if t2, err2 := time.Parse(time.RFC3339Nano, value); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// timeScanner collects TEXT timestamp columns and parses them after Scan.
type timeScanner struct {
	targets []*time.Time
	raw     []*string
	nTarget []**time.Time
	nRaw    []*sql.NullString
}

func (ts *timeScanner) at(dst *time.Time) *string {
	s := new(string)
	ts.targets = append(ts.targets, dst)
	ts.raw = append(ts.raw, s)
	return s
}

func (ts *timeScanner) nullable(dst **time.Time) *sql.NullString {
	s := new(sql.NullString)
	ts.nTarget = append(ts.nTarget, dst)
	ts.nRaw = append(ts.nRaw, s)
	return s
}

func (ts *timeScanner) parse() error {
	for i, dst := range ts.targets {
		t, err := parseTime(*ts.raw[i])
		if err != nil {
			return err
		}
		*dst = t
	}
	for i, dst := range ts.nTarget {
		t, err := parseNullTime(*ts.nRaw[i])
		if err != nil {
			return err
		}
		*dst = t
	}
	return nil
}

func userRefFrom(id, name, email string, avatar sql.NullString) persistence.UserRef {
	return persistence.UserRef{ID: id, Name: name, Email: email, Avatar: stringPtr(avatar)}
}
