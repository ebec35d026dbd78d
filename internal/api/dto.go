package api

import (
	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/todo"
)

const statusOK = "OK"

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type createTodoRequest struct {
	Text string `json:"text" validate:"required"`
}

// updateTodoRequest keeps completed untyped: only a JSON true marks the item
// done, any other value clears completion.
type updateTodoRequest struct {
	Text      *string `json:"text"`
	Completed any     `json:"completed"`
}

func (r updateTodoRequest) patch() todo.Patch {
	done, _ := r.Completed.(bool)
	return todo.Patch{Text: r.Text, Completed: &done}
}

type userResponse struct {
	User auth.User `json:"user"`
}

type todoResponse struct {
	Todo todo.Todo `json:"todo"`
}

type todosResponse struct {
	Todos  []todo.Todo `json:"todos"`
	Status string      `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
}
