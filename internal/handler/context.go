package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/model"
)

// Keys under which the auth middleware stores the authorized session.
const (
	ContextUserKey    = "user"
	ContextTokenIDKey = "token_id"
)

// currentUser returns the user stored by the auth middleware.
func currentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(ContextUserKey).(*model.User)
	if !ok || user == nil {
		return nil, fail(apperrors.ErrUnauthenticated)
	}
	return user, nil
}

func currentTokenID(c echo.Context) string {
	id, _ := c.Get(ContextTokenIDKey).(string)
	return id
}

// fail converts a domain error into the standard error body.
func fail(err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(format string, args ...any) *echo.HTTPError {
	return fail(fmt.Errorf("%w: %s", apperrors.ErrInvalidField, fmt.Sprintf(format, args...)))
}

// bindFields decodes a JSON object body without path or query params.
func bindFields(c echo.Context) (map[string]any, error) {
	fields := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &fields); err != nil {
		return nil, badRequest("invalid request body")
	}
	return fields, nil
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}
