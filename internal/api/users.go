package api

import (
	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/httpx"
)

func (h *Handler) register(c httpx.Context) error {
	var req credentialsRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	user, token, err := h.auth.Register(c.Request().Context(), req.Email, []byte(req.Password))
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(auth.TokenHeader, token)
	return c.JSON(httpx.StatusOK, userResponse{User: user})
}

func (h *Handler) login(c httpx.Context) error {
	var req credentialsRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	user, token, err := h.auth.Login(c.Request().Context(), req.Email, []byte(req.Password))
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(auth.TokenHeader, token)
	return c.JSON(httpx.StatusOK, userResponse{User: user})
}

func (h *Handler) me(c httpx.Context) error {
	return c.JSON(httpx.StatusOK, userResponse{User: identity(c).User})
}

func (h *Handler) updateMe(c httpx.Context) error {
	var req updateUserRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateUser(c.Request().Context(), identity(c).User.ID, auth.UserPatch{Email: &req.Email})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, userResponse{User: user})
}

func (h *Handler) logout(c httpx.Context) error {
	if err := h.auth.Logout(c.Request().Context(), identity(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(httpx.StatusOK)
}

func (h *Handler) changePassword(c httpx.Context) error {
	var req changePasswordRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.ChangePassword(c.Request().Context(), identity(c).User.ID, []byte(req.CurrentPassword), []byte(req.NewPassword))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(httpx.StatusOK, userResponse{User: user})
}
