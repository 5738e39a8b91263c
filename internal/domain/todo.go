package domain

import "time"

// Todo is the domain entity. It does not depend on Gin or Postgres.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
	DueDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodoPatch carries the fields of a partial update. A nil pointer means the
// field was absent from the request and keeps its stored value. DueDate is
// nullable, so its presence is tracked separately: SetDueDate is true when the
// request named the field, even when the value was null.
type TodoPatch struct {
	Title      *string
	Completed  *bool
	DueDate    *time.Time
	SetDueDate bool
}
