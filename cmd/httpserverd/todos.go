package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/bodyparse"
	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// todo is the demo resource exercising the validation/error/logging stack
// end to end (spec §8 scenarios S1/S2).
type todo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// createTodoInput is the typed decode target for the validated request
// body — mapstructure handles the untyped-map-to-struct step so the
// handler itself never type-asserts into the parsed JSON.
type createTodoInput struct {
	Title string `mapstructure:"title"`
}

var todoSchema = bodyparse.Schema{
	"title": {Kind: bodyparse.RequiredString, MinLength: 1, MaxLength: 100},
}

type todoStore struct {
	mu    sync.Mutex
	items map[string]todo
}

func newTodoStore() *todoStore {
	return &todoStore{items: make(map[string]todo)}
}

func (s *todoStore) create(title string) todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := todo{ID: uuid.NewString(), Title: title}
	s.items[t.ID] = t
	return t
}

func (s *todoStore) get(id string) (todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	return t, ok
}

func registerTodoRoutes(router *pipeline.Router) {
	store := newTodoStore()

	router.POST("/api/todos", func(c *reqctx.Context) error {
		raw, ok := bodyparse.Body(c)
		if !ok {
			return apperr.NewValidation("body", nil, "request body is required")
		}
		values, ok := raw.(map[string]any)
		if !ok {
			return apperr.NewValidation("body", raw, "request body must be a JSON object")
		}

		result := bodyparse.Validate(values, todoSchema)
		if !result.Valid {
			first := result.Errors[0]
			return apperr.NewValidation(first.Field, first.Value, first.Field+": "+first.Message)
		}

		var input createTodoInput
		if err := mapstructure.Decode(values, &input); err != nil {
			return apperr.NewValidation("body", values, "request body does not match the expected shape")
		}

		t := store.create(input.Title)
		body, err := json.Marshal(t)
		if err != nil {
			return err
		}
		c.Response.Headers.Set("Content-Type", "application/json; charset=utf-8")
		c.Response.Commit(reqctx.CommitFields{Status: http.StatusCreated, Body: body})
		return nil
	})

	router.GET("/api/todos/:id", func(c *reqctx.Context) error {
		t, ok := store.get(c.Param("id"))
		if !ok {
			return apperr.NewNotFound("todo")
		}
		body, err := json.Marshal(t)
		if err != nil {
			return err
		}
		c.Response.Headers.Set("Content-Type", "application/json; charset=utf-8")
		c.Response.Commit(reqctx.CommitFields{Status: http.StatusOK, Body: body})
		return nil
	})
}
