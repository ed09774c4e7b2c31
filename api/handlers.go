package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"trellis-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, graphStore GraphStore, auth Authenticator, tokens *Tokens, feed Publisher, logger *log.Logger) {
	tasks := domain.NewTaskService(store)

	e.GET("/healthz", healthz())

	e.POST("/api/auth/register", postRegister(store, tokens))
	e.POST("/api/auth/login", postLogin(store, tokens))

	e.GET("/api/projects", getProjects(store, auth))
	e.POST("/api/projects", postProject(store, auth, feed))
	e.GET("/api/projects/:id", getProject(store, auth))
	e.PATCH("/api/projects/:id", patchProject(store, auth, feed))
	e.DELETE("/api/projects/:id", deleteProject(store, auth, feed))
	e.GET("/api/projects/:id/suggestions", getSuggestions(store, auth))

	e.GET("/api/tasks/by-project/:projectId", getTasksByProject(tasks, auth))
	e.POST("/api/tasks", postTask(tasks, auth, feed))
	e.PATCH("/api/tasks/:id", patchTask(tasks, auth, feed, logger))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, auth, feed))

	e.POST("/api/graph/link", postGraphLink(graphStore, auth))
	e.GET("/api/graph/suggestions", getLinkSuggestions(store, auth))
	e.GET("/api/graph/:projectId", getGraphLinks(graphStore, auth))

	e.GET("/api/search", getSearch(store, auth))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// requireUser resolves the caller from the Authorization header. A missing or
// invalid token short-circuits with 401 before any handler logic runs.
func requireUser(c echo.Context, auth Authenticator) (string, error) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return "", c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	}
	return userID, nil
}

// decodeBody decodes a size-limited JSON body, rejecting unknown fields.
func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// writeError maps domain errors onto the HTTP taxonomy.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
