package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "github.com/shahneel169/todo-backend/internal/domain"
	"github.com/shahneel169/todo-backend/internal/service"
)

// memRepo is an in-memory TodoRepo with the same contract as the Postgres
// implementation, including pgx.ErrNoRows for missing ids.
type memRepo struct {
	nextID int64
	rows   map[int64]dom.Todo
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, rows: make(map[int64]dom.Todo)}
}

func (m *memRepo) List(ctx context.Context) ([]dom.Todo, error) {
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	list := make([]dom.Todo, 0, len(ids))
	for _, id := range ids {
		list = append(list, m.rows[id])
	}
	return list, nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	t, ok := m.rows[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	now := time.Now().UTC()
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = now
	t.UpdatedAt = now
	m.rows[t.ID] = t
	return t, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error) {
	t, ok := m.rows[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.SetDueDate {
		t.DueDate = patch.DueDate
	}
	t.UpdatedAt = time.Now().UTC()
	m.rows[id] = t
	return t, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) (dom.Todo, error) {
	t, ok := m.rows[id]
	if !ok {
		return dom.Todo{}, pgx.ErrNoRows
	}
	delete(m.rows, id)
	return t, nil
}

func newTestRouter() (*gin.Engine, *memRepo) {
	gin.SetMode(gin.TestMode)
	repo := newMemRepo()
	h := NewTodoHandler(service.NewTodoService(repo))

	r := gin.New()
	r.POST("/todos", h.Create)
	r.GET("/todos", h.List)
	r.GET("/todos/:id", h.GetByID)
	r.PUT("/todos/:id", h.Update)
	r.DELETE("/todos/:id", h.Delete)
	return r, repo
}

func doJSON(t *testing.T, r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func parseTime(t *testing.T, v interface{}) time.Time {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected timestamp string, got %T", v)
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestListTodos(t *testing.T) {
	r, _ := newTestRouter()

	t.Run("empty list is an empty array", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("returns all todos in insertion order", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			w := doJSON(t, r, http.MethodPost, "/todos", fmt.Sprintf(`{"title":"todo %d"}`, i))
			require.Equal(t, http.StatusOK, w.Code)
		}

		w := doJSON(t, r, http.MethodGet, "/todos", "")
		require.Equal(t, http.StatusOK, w.Code)

		var list []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 3)
		for i, item := range list {
			assert.Equal(t, fmt.Sprintf("todo %d", i+1), item["title"])
			assert.Contains(t, item, "id")
			assert.Contains(t, item, "completed")
			assert.Contains(t, item, "due_date")
			assert.Contains(t, item, "created_at")
			assert.Contains(t, item, "updated_at")
		}
	})
}

func TestCreateTodo(t *testing.T) {
	t.Run("full body", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos",
			`{"title":"todo 1","completed":false,"due_date":"2025-12-31"}`)
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, "todo 1", data["title"])
		assert.Equal(t, false, data["completed"])
		assert.Equal(t, "2025-12-31", data["due_date"])
		assert.NotNil(t, data["id"])
	})

	t.Run("minimal body defaults", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"Minimal todo"}`)
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, "Minimal todo", data["title"])
		assert.Equal(t, false, data["completed"])
		assert.Nil(t, data["due_date"])
	})

	t.Run("missing title is 422 and persists nothing", func(t *testing.T) {
		r, repo := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, repo.rows)
	})

	t.Run("whitespace-only title is 422 and persists nothing", func(t *testing.T) {
		r, repo := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"   "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, repo.rows)
	})

	t.Run("unparseable due_date is 422", func(t *testing.T) {
		r, repo := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"x","due_date":"not a date"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Empty(t, repo.rows)
	})
}

func TestGetTodo(t *testing.T) {
	r, _ := newTestRouter()

	t.Run("round trip", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"todo 1","due_date":"2026-02-19"}`)
		require.Equal(t, http.StatusOK, w.Code)
		created := decode(t, w)

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/todos/%v", created["id"]), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, created, decode(t, w))
	})

	t.Run("not found", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Todo not found", decode(t, w)["detail"])
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/todos/abc", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestUpdateTodo(t *testing.T) {
	t.Run("partial update keeps other fields", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"Original","completed":false}`)
		require.Equal(t, http.StatusOK, w.Code)
		id := decode(t, w)["id"]

		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", id), `{"completed":true}`)
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, "Original", data["title"])
		assert.Equal(t, true, data["completed"])
	})

	t.Run("empty patch leaves fields unchanged", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"keep me","due_date":"2026-02-19"}`)
		require.Equal(t, http.StatusOK, w.Code)
		created := decode(t, w)

		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", created["id"]), `{}`)
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, created["title"], data["title"])
		assert.Equal(t, created["completed"], data["completed"])
		assert.Equal(t, created["due_date"], data["due_date"])
	})

	t.Run("explicit null clears due date", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"x","due_date":"2026-02-19"}`)
		require.Equal(t, http.StatusOK, w.Code)
		id := decode(t, w)["id"]

		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", id), `{"due_date":null}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["due_date"])

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/todos/%v", id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["due_date"])
	})

	t.Run("clear due date with empty string", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"x","due_date":"2026-02-19"}`)
		require.Equal(t, http.StatusOK, w.Code)
		id := decode(t, w)["id"]

		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", id), `{"due_date":""}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["due_date"])
	})

	t.Run("refreshes updated_at", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"x"}`)
		require.Equal(t, http.StatusOK, w.Code)
		created := decode(t, w)

		time.Sleep(5 * time.Millisecond)
		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", created["id"]), `{"completed":true}`)
		require.Equal(t, http.StatusOK, w.Code)
		updated := decode(t, w)

		createdAt := parseTime(t, created["created_at"])
		before := parseTime(t, created["updated_at"])
		after := parseTime(t, updated["updated_at"])
		assert.True(t, after.After(before), "updated_at must move forward on update")
		assert.False(t, after.Before(createdAt), "updated_at must never precede created_at")
		assert.Equal(t, created["created_at"], updated["created_at"])
	})

	t.Run("whitespace-only title is 422", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"keep me"}`)
		require.Equal(t, http.StatusOK, w.Code)
		id := decode(t, w)["id"]

		w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/todos/%v", id), `{"title":"   "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/todos/%v", id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "keep me", decode(t, w)["title"])
	})

	t.Run("absent id is 404 and creates nothing", func(t *testing.T) {
		r, repo := newTestRouter()
		w := doJSON(t, r, http.MethodPut, "/todos/999", `{"title":"Updated via API"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Todo not found", decode(t, w)["detail"])
		assert.Empty(t, repo.rows)
	})
}

func TestDeleteTodo(t *testing.T) {
	t.Run("delete then get is 404", func(t *testing.T) {
		r, _ := newTestRouter()
		w := doJSON(t, r, http.MethodPost, "/todos", `{"title":"To delete"}`)
		require.Equal(t, http.StatusOK, w.Code)
		id := decode(t, w)["id"]

		w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/todos/%v", id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Todo deleted successfully", decode(t, w)["message"])

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/todos/%v", id), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Todo not found", decode(t, w)["detail"])
	})

	t.Run("absent id is 404 with no effect", func(t *testing.T) {
		r, repo := newTestRouter()
		doJSON(t, r, http.MethodPost, "/todos", `{"title":"survivor"}`)

		w := doJSON(t, r, http.MethodDelete, "/todos/999", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Todo not found", decode(t, w)["detail"])
		assert.Len(t, repo.rows, 1)
	})
}
