package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"taskmanager/internal/config"
	apperrors "taskmanager/internal/errors"
	"taskmanager/internal/handler"
	"taskmanager/internal/logging"
	"taskmanager/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logging.Logger,
	authService service.AuthService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	taskHandler *handler.TaskHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/users", authHandler.CreateUser)
	api.POST("/users/login", authHandler.Login, loginRateLimiter(cfg))
	api.GET("/users/:id/avatar", userHandler.GetAvatar)

	// Secured routes (require a live session token)
	secured := api.Group("", Authenticate(authService, log))

	secured.POST("/users/logout", authHandler.Logout)
	secured.POST("/users/logoutAll", authHandler.LogoutAll)
	secured.GET("/users/me", userHandler.Me)
	secured.PATCH("/users/me", userHandler.UpdateMe)
	secured.DELETE("/users/me", userHandler.DeleteMe)
	secured.POST("/users/me/avatar", userHandler.UploadAvatar)
	secured.DELETE("/users/me/avatar", userHandler.DeleteAvatar)

	// Task routes
	secured.POST("/tasks", taskHandler.Create)
	secured.GET("/tasks", taskHandler.List)
	secured.GET("/tasks/:id", taskHandler.Get)
	secured.PATCH("/tasks/:id", taskHandler.Update)
	secured.DELETE("/tasks/:id", taskHandler.Delete)
}

// lookupError marks failures of the session lookup itself, as opposed to
// a token that is simply not valid.
type lookupError struct {
	err error
}

func (e *lookupError) Error() string { return e.err.Error() }
func (e *lookupError) Unwrap() error { return e.err }

// Authenticate returns middleware that resolves the bearer token through
// the auth service. The user and token id are stored on the context under
// handler.ContextUserKey and handler.ContextTokenIDKey.
func Authenticate(authService service.AuthService, log logging.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ContextUserKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			user, tokenID, err := authService.Authorize(c.Request().Context(), auth)
			if errors.Is(err, apperrors.ErrUnauthenticated) {
				return nil, err
			}
			if err != nil {
				return nil, &lookupError{err: err}
			}
			c.Set(handler.ContextTokenIDKey, tokenID)
			return user, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var lookupErr *lookupError
			if errors.As(err, &lookupErr) {
				log.Error(c.Request().Context(), "session lookup failed", "error", lookupErr.err)
				return toHTTPError(lookupErr.err)
			}
			return toHTTPError(apperrors.ErrUnauthenticated)
		},
	})
}

func loginRateLimiter(cfg *config.Config) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.LoginRateLimit),
		Burst:     cfg.LoginRateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: "unable to identify client",
				Code:  "FORBIDDEN",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Error: "too many login attempts",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			if v.Status >= http.StatusInternalServerError {
				log.Error(c.Request().Context(), "request", args...)
			} else {
				log.Info(c.Request().Context(), "request", args...)
			}
			return nil
		},
	})
}

func toHTTPError(err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
