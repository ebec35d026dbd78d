package api

import (
	"github.com/adeilh/rakh-todos/httpx"
)

func (h *Handler) createTodo(c httpx.Context) error {
	var req createTodoRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.todos.Create(c.Request().Context(), identity(c).User.ID, req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, todoResponse{Todo: t})
}

func (h *Handler) listTodos(c httpx.Context) error {
	todos, err := h.todos.List(c.Request().Context(), identity(c).User.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, todosResponse{Todos: todos, Status: statusOK})
}

func (h *Handler) getTodo(c httpx.Context) error {
	t, err := h.todos.Get(c.Request().Context(), identity(c).User.ID, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, todoResponse{Todo: t})
}

func (h *Handler) deleteTodo(c httpx.Context) error {
	t, err := h.todos.Delete(c.Request().Context(), identity(c).User.ID, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, todoResponse{Todo: t})
}

func (h *Handler) updateTodo(c httpx.Context) error {
	var req updateTodoRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.todos.Update(c.Request().Context(), identity(c).User.ID, c.Param("id"), req.patch())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, todoResponse{Todo: t})
}
