package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"main/internal/database"
	"main/internal/model"
)

func todoRequest(t *testing.T, env *testEnv, method, target string, body any) *http.Request {
	t.Helper()

	req := jsonRequest(t, method, target, body)
	pair, err := env.issuer.Issue(42, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	return req
}

func TestTodoRoutesRequireToken(t *testing.T) {
	env := setupTest(t)

	testCases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{
			name:  "no credentials",
			setup: func(r *http.Request) {},
		},
		{
			name: "garbage bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not.a.jwt")
			},
		},
		{
			name: "garbage access token cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "not.a.jwt"})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/todos", nil)
			tc.setup(req)

			// A bearer value is also probed as a session id before the
			// token check rejects it.
			env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

			w := env.perform(req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"unauthorized"}`, w.Body.String())
			env.todos.AssertNotCalled(t, "ListTodos", mock.Anything)
		})
	}
}

func TestListTodos(t *testing.T) {
	env := setupTest(t)
	env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

	desc := "milk, eggs"
	env.todos.On("ListTodos", int64(42)).Return([]model.Todo{
		{ID: 1, Title: "groceries", Description: &desc, UserID: 42, CreatedAt: time.Now()},
		{ID: 2, Title: "laundry", Completed: true, UserID: 42, CreatedAt: time.Now()},
	}, nil)

	w := env.perform(todoRequest(t, env, http.MethodGet, "/todos", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var todos []model.Todo
	require.NoError(t, decodeInto(t, w, &todos))
	require.Len(t, todos, 2)
	assert.Equal(t, "groceries", todos[0].Title)
	assert.True(t, todos[1].Completed)
}

func TestListTodosEmpty(t *testing.T) {
	env := setupTest(t)
	env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()
	env.todos.On("ListTodos", int64(42)).Return([]model.Todo{}, nil)

	w := env.perform(todoRequest(t, env, http.MethodGet, "/todos", nil))

	require.Equal(t, http.StatusOK, w.Code)
	// An empty list is a JSON array, never null.
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateTodo(t *testing.T) {
	env := setupTest(t)
	env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

	desc := "milk, eggs"
	created := &model.Todo{ID: 1, Title: "groceries", Description: &desc, UserID: 42, CreatedAt: time.Now()}
	env.todos.On("CreateTodo", int64(42), "groceries", mock.MatchedBy(func(d *string) bool {
		return d != nil && *d == "milk, eggs"
	})).Return(created, nil)

	w := env.perform(todoRequest(t, env, http.MethodPost, "/todos", gin.H{
		"title":       "groceries",
		"description": "milk, eggs",
	}))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "groceries", decodeBody(t, w)["title"])
	env.todos.AssertExpectations(t)
}

func TestCreateTodoMissingTitle(t *testing.T) {
	env := setupTest(t)
	env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

	w := env.perform(todoRequest(t, env, http.MethodPost, "/todos", gin.H{
		"description": "no title here",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"title is required"}`, w.Body.String())
	env.todos.AssertNotCalled(t, "CreateTodo", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetTodo(t *testing.T) {
	testCases := []struct {
		name         string
		target       string
		setupMocks   func(env *testEnv)
		expectedCode int
		expectedBody string
	}{
		{
			name:   "found",
			target: "/todos/1",
			setupMocks: func(env *testEnv) {
				env.todos.On("FindTodo", int64(1), int64(42)).
					Return(&model.Todo{ID: 1, Title: "groceries", UserID: 42}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "not found",
			target: "/todos/99",
			setupMocks: func(env *testEnv) {
				env.todos.On("FindTodo", int64(99), int64(42)).Return(nil, nil)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"Not found"}`,
		},
		{
			name:         "non-numeric id",
			target:       "/todos/abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"invalid id"}`,
		},
		{
			name:   "store failure",
			target: "/todos/1",
			setupMocks: func(env *testEnv) {
				env.todos.On("FindTodo", int64(1), int64(42)).Return(nil, assert.AnError)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"message":"Internal error"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTest(t)
			env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()
			if tc.setupMocks != nil {
				tc.setupMocks(env)
			}

			w := env.perform(todoRequest(t, env, http.MethodGet, tc.target, nil))

			assert.Equal(t, tc.expectedCode, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}
		})
	}
}

func TestUpdateTodo(t *testing.T) {
	t.Run("partial update forwards only the provided fields", func(t *testing.T) {
		env := setupTest(t)
		env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

		updated := &model.Todo{ID: 1, Title: "groceries", Completed: true, UserID: 42}
		env.todos.On("UpdateTodo", int64(1), int64(42), mock.MatchedBy(func(p database.TodoPatch) bool {
			return p.Title == nil && p.Description == nil && p.Completed != nil && *p.Completed
		})).Return(updated, nil)

		w := env.perform(todoRequest(t, env, http.MethodPatch, "/todos/1", gin.H{
			"completed": true,
		}))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["completed"])
		env.todos.AssertExpectations(t)
	})

	t.Run("another user's todo is not found", func(t *testing.T) {
		env := setupTest(t)
		env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()
		env.todos.On("UpdateTodo", int64(7), int64(42), mock.Anything).Return(nil, nil)

		w := env.perform(todoRequest(t, env, http.MethodPatch, "/todos/7", gin.H{
			"title": "hijacked",
		}))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"Not found"}`, w.Body.String())
	})
}

func TestDeleteTodo(t *testing.T) {
	t.Run("returns the deleted todo", func(t *testing.T) {
		env := setupTest(t)
		env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()

		deleted := &model.Todo{ID: 1, Title: "groceries", UserID: 42}
		env.todos.On("DeleteTodo", int64(1), int64(42)).Return(deleted, nil)

		w := env.perform(todoRequest(t, env, http.MethodDelete, "/todos/1", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "groceries", decodeBody(t, w)["title"])
	})

	t.Run("deleting twice yields not found", func(t *testing.T) {
		env := setupTest(t)
		env.sessions.On("FindSession", mock.Anything).Return(nil, nil).Maybe()
		env.todos.On("DeleteTodo", int64(1), int64(42)).Return(nil, nil)

		w := env.perform(todoRequest(t, env, http.MethodDelete, "/todos/1", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"message":"Not found"}`, w.Body.String())
	})
}
