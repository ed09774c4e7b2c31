package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"trellis-api/activity"
	"trellis-api/assist"
	"trellis-api/domain"
)

var jsonNull = []byte("null")

// optionalTime decodes a nullable timestamp field: absent (nil raw), explicit
// null (clear), or an RFC3339 string.
func optionalTime(raw json.RawMessage) (value *time.Time, clear bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("%w: invalid timestamp", domain.ErrInvalidArgument)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, fmt.Errorf("%w: invalid timestamp %q", domain.ErrInvalidArgument, s)
	}
	return &t, false, nil
}

type createProjectRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Objectives  []string        `json:"objectives"`
	Deadline    json.RawMessage `json:"deadline"`
	Tags        []string        `json:"tags"`
}

func getProjects(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		projects, err := store.ListProjects(c.Request().Context(), userID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, projectsResponse{Projects: projects})
	}
}

func postProject(store Store, auth Authenticator, feed Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		var req createProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if strings.TrimSpace(req.Name) == "" {
			return writeError(c, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidArgument))
		}
		deadline, _, err := optionalTime(req.Deadline)
		if err != nil {
			return writeError(c, err)
		}

		now := domain.Now()
		p := domain.Project{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Objectives:  orEmpty(req.Objectives),
			Tags:        orEmpty(req.Tags),
			Deadline:    deadline,
			CreatedBy:   userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.InsertProject(c.Request().Context(), p); err != nil {
			return writeError(c, err)
		}
		feed.Publish(activity.Activity{
			UserID: userID, Kind: "project-created", EntityType: "project", EntityID: p.ID, At: domain.Now(),
		})
		return c.JSON(http.StatusCreated, projectResponse{Project: p})
	}
}

func getProject(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		p, err := store.GetProject(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, projectResponse{Project: p})
	}
}

type updateProjectRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Objectives  *[]string       `json:"objectives"`
	Deadline    json.RawMessage `json:"deadline"`
	Tags        *[]string       `json:"tags"`
}

func patchProject(store Store, auth Authenticator, feed Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		var req updateProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			return writeError(c, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidArgument))
		}
		deadline, clear, err := optionalTime(req.Deadline)
		if err != nil {
			return writeError(c, err)
		}

		patch := domain.ProjectPatch{
			Name:          req.Name,
			Description:   req.Description,
			Objectives:    req.Objectives,
			Tags:          req.Tags,
			Deadline:      deadline,
			ClearDeadline: clear,
		}
		if patch.Empty() {
			return writeError(c, fmt.Errorf("%w: update had no fields", domain.ErrInvalidArgument))
		}
		p, err := store.UpdateProject(c.Request().Context(), userID, c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		feed.Publish(activity.Activity{
			UserID: userID, Kind: "project-updated", EntityType: "project", EntityID: p.ID, At: domain.Now(),
		})
		return c.JSON(http.StatusOK, projectResponse{Project: p})
	}
}

// deleteProject removes the project only. Its tasks are left in place; the
// original system never cascaded and silently inventing cascade semantics
// would change observable behavior.
func deleteProject(store Store, auth Authenticator, feed Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		p, err := store.DeleteProject(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		feed.Publish(activity.Activity{
			UserID: userID, Kind: "project-deleted", EntityType: "project", EntityID: p.ID, At: domain.Now(),
		})
		return c.NoContent(http.StatusNoContent)
	}
}

type suggestionsResponse struct {
	Tasks  []assist.TaskSuggestion `json:"tasks"`
	Advice []string                `json:"advice"`
}

func getSuggestions(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		p, err := store.GetProject(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, suggestionsResponse{
			Tasks:  assist.TaskSuggestions(p),
			Advice: assist.Advice(p),
		})
	}
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
