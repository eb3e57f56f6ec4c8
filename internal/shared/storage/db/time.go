package db

import (
	"fmt"
	"time"
)

// timestampLayout is fixed-width so SQLite TEXT columns sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp formats t for storage in either backend.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// NullableTimestamp formats t, or returns nil for a nil pointer.
func NullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return Timestamp(*t)
}

// Time scans timestamp columns returned either as time.Time (pgx) or text (sqlite).
type Time struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner.
func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("db.Time: unsupported source type %T", src)
	}
}

func (t *Time) parse(raw string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("db.Time: cannot parse %q", raw)
}

// Ptr returns a pointer to the scanned time, or nil when NULL.
func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
