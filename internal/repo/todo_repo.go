package repo

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dom "github.com/shahneel169/todo-backend/internal/domain"
)

// psql builds queries with Postgres $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var todoColumns = []string{"id", "title", "completed", "due_date", "created_at", "updated_at"}

type TodoRepo interface {
	List(ctx context.Context) ([]dom.Todo, error)
	GetByID(ctx context.Context, id int64) (dom.Todo, error)
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error)
	Delete(ctx context.Context, id int64) (dom.Todo, error)
}

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

// List returns every todo ordered by id ascending, so callers see insertion
// order regardless of how Postgres happens to return unordered rows.
func (r *PGTodoRepo) List(ctx context.Context) ([]dom.Todo, error) {
	query, args, err := psql.Select(todoColumns...).
		From("todos").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Todo
	for rows.Next() {
		var t dom.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.DueDate,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	query, args, err := psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return dom.Todo{}, err
	}
	return scanTodo(r.db.QueryRow(ctx, query, args...))
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query, args, err := psql.Insert("todos").
		Columns("title", "completed", "due_date").
		Values(t.Title, t.Completed, t.DueDate).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return dom.Todo{}, err
	}
	return scanTodo(r.db.QueryRow(ctx, query, args...))
}

// Update merges the patch onto the stored row inside one transaction. The row
// is locked for the read-modify-write, so concurrent updates to the same id
// serialize and each commit applies a complete patch.
func (r *PGTodoRepo) Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args, err := psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return dom.Todo{}, err
	}
	current, err := scanTodo(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return dom.Todo{}, err
	}

	next := applyPatch(current, patch)

	query, args, err = psql.Update("todos").
		Set("title", next.Title).
		Set("completed", next.Completed).
		Set("due_date", next.DueDate).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return dom.Todo{}, err
	}
	out, err := scanTodo(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return dom.Todo{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return dom.Todo{}, err
	}
	return out, nil
}

// Delete removes the row and returns it as it existed just before removal.
func (r *PGTodoRepo) Delete(ctx context.Context, id int64) (dom.Todo, error) {
	query, args, err := psql.Delete("todos").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return dom.Todo{}, err
	}
	return scanTodo(r.db.QueryRow(ctx, query, args...))
}

// applyPatch copies only the explicitly supplied patch fields onto the row.
func applyPatch(t dom.Todo, p dom.TodoPatch) dom.Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.SetDueDate {
		t.DueDate = p.DueDate
	}
	return t
}

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt)
	return t, err
}
