package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date parses due_date from JSON as either date-only ("2006-01-02") or
// RFC3339. A datetime is truncated to its calendar day in UTC, since the
// column only stores a date. It marshals back as a date-only string, or null.
type Date struct{ t *time.Time }

// NewDate wraps a *time.Time for use in responses.
func NewDate(t *time.Time) Date { return Date{t: t} }

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		dateLayout,
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			d.t = &day
			return nil
		}
	}
	return fmt.Errorf("due_date: use date (YYYY-MM-DD) or RFC3339 datetime")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(dateLayout))
}

// Ptr returns *time.Time for use in service/domain.
func (d Date) Ptr() *time.Time { return d.t }

type CreateTodoRequest struct {
	Title     string `json:"title" binding:"required,min=1"`
	Completed bool   `json:"completed"`
	DueDate   Date   `json:"due_date"` // optional: "2026-02-19" or RFC3339
}

// OptionalDate is a Date that records whether the field appeared in the JSON
// body at all. It must stay a value type: encoding/json skips UnmarshalJSON
// for null on a pointer field, but calls it on a value field, so an explicit
// null is seen here and marks the date present with a nil value.
type OptionalDate struct {
	present bool
	date    Date
}

func (d *OptionalDate) UnmarshalJSON(data []byte) error {
	if err := d.date.UnmarshalJSON(data); err != nil {
		return err
	}
	d.present = true
	return nil
}

// Present reports whether the field was named in the request, even as null.
func (d OptionalDate) Present() bool { return d.present }

// Ptr returns *time.Time for use in service/domain.
func (d OptionalDate) Ptr() *time.Time { return d.date.t }

// UpdateTodoRequest is a partial update: only fields present in the JSON body
// are applied. An absent due_date leaves the stored value untouched; an
// explicit null (or "") clears it.
type UpdateTodoRequest struct {
	Title     *string      `json:"title" binding:"omitempty,min=1"`
	Completed *bool        `json:"completed"`
	DueDate   OptionalDate `json:"due_date"`
}

type TodoResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	DueDate   Date      `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
