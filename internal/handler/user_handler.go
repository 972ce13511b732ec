package handler

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskmanager/internal/avatar"
	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/service"
)

// UserHandler serves the authenticated user's profile and avatars.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateProfileRequest lists the updatable profile fields.
type UpdateProfileRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Age      int    `json:"age,omitempty"`
}

// Me godoc
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Redacted())
}

// UpdateMe godoc
// @Summary Update own profile
// @Description Only name, email, password and age may be sent; any other key rejects the request.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	fields, err := bindFields(c)
	if err != nil {
		return err
	}

	updated, err := h.svc.UpdateProfile(c.Request().Context(), user, fields)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteMe godoc
// @Summary Delete own account
// @Description Removes the user, its tasks and every session token.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAccount(c.Request().Context(), user); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, user.Redacted())
}

// UploadAvatar godoc
// @Summary Upload avatar
// @Description Accepts a .jpg, .jpeg or .png image up to 1MB; it is stored as a 250x250 PNG.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me/avatar [post]
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return fail(apperrors.ErrInvalidAvatar)
	}
	src, err := file.Open()
	if err != nil {
		return fail(apperrors.ErrInvalidAvatar)
	}
	defer src.Close()

	// one byte over the limit is enough to reject it
	data, err := io.ReadAll(io.LimitReader(src, avatar.MaxUploadSize+1))
	if err != nil {
		return fail(apperrors.ErrInvalidAvatar)
	}

	if err := h.svc.SetAvatar(c.Request().Context(), user, file.Filename, data); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "avatar uploaded"})
}

// DeleteAvatar godoc
// @Summary Delete avatar
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me/avatar [delete]
func (h *UserHandler) DeleteAvatar(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAvatar(c.Request().Context(), user); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "avatar deleted"})
}

// GetAvatar godoc
// @Summary Get a user's avatar
// @Tags users
// @Produce png
// @Param id path string true "User ID"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/avatar [get]
func (h *UserHandler) GetAvatar(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return fail(apperrors.ErrNotFound)
	}

	data, err := h.svc.GetAvatar(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}
