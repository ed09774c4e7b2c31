package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"trellis-api/activity"
	"trellis-api/domain"
)

func getTasksByProject(tasks domain.TaskService, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		list, err := tasks.ListByProject(c.Request().Context(), userID, c.Param("projectId"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: list})
	}
}

type createTaskRequest struct {
	ProjectID   string          `json:"projectId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	DueAt       json.RawMessage `json:"dueAt"`
}

func postTask(tasks domain.TaskService, auth Authenticator, feed Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		dueAt, _, err := optionalTime(req.DueAt)
		if err != nil {
			return writeError(c, err)
		}

		draft := domain.TaskDraft{
			ProjectID:   req.ProjectID,
			Title:       req.Title,
			Description: req.Description,
			Status:      domain.TaskStatus(req.Status),
			Priority:    domain.TaskPriority(req.Priority),
			DueAt:       dueAt,
		}
		t, err := tasks.Create(c.Request().Context(), userID, draft)
		if err != nil {
			return writeError(c, err)
		}
		feed.Publish(activity.Activity{
			UserID: userID, Kind: "task-created", EntityType: "task", EntityID: t.ID, ProjectID: t.ProjectID, At: domain.Now(),
		})
		return c.JSON(http.StatusCreated, taskResponse{Task: t})
	}
}

type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
	DueAt       json.RawMessage `json:"dueAt"`
}

// patchTask handles both board transitions and field edits. Validation runs
// before any write: a bad status or priority never touches the stored record.
func patchTask(tasks domain.TaskService, auth Authenticator, feed Publisher, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newMoveRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		var req updateTaskRequest
		if decErr := decodeBody(c, &req); decErr != nil {
			metrics.SetErrorStage("decode_body")
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
			return err
		}

		patch := domain.TaskPatch{
			Title:       req.Title,
			Description: req.Description,
		}
		if req.Status != nil {
			status, parseErr := domain.ParseStatus(*req.Status)
			if parseErr != nil {
				metrics.SetErrorStage("invalid_status")
				err = writeError(c, parseErr)
				return err
			}
			patch.Status = &status
			metrics.SetTargetStatus(string(status))
		}
		if req.Priority != nil {
			priority, parseErr := domain.ParsePriority(*req.Priority)
			if parseErr != nil {
				metrics.SetErrorStage("invalid_priority")
				err = writeError(c, parseErr)
				return err
			}
			patch.Priority = &priority
		}
		dueAt, clear, parseErr := optionalTime(req.DueAt)
		if parseErr != nil {
			metrics.SetErrorStage("invalid_due_at")
			err = writeError(c, parseErr)
			return err
		}
		patch.DueAt = dueAt
		patch.ClearDueAt = clear

		updateStart := time.Now()
		t, updateErr := tasks.Update(ctx, userID, c.Param("id"), patch)
		metrics.ObserveUpdate(time.Since(updateStart))
		if updateErr != nil {
			metrics.SetErrorStage("update")
			err = writeError(c, updateErr)
			return err
		}

		if patch.Status != nil {
			feed.Publish(activity.TaskMoved(userID, t.ID, t.ProjectID, *patch.Status))
		} else {
			feed.Publish(activity.Activity{
				UserID: userID, Kind: "task-updated", EntityType: "task", EntityID: t.ID, ProjectID: t.ProjectID, At: domain.Now(),
			})
		}

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, taskResponse{Task: t})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func deleteTask(tasks domain.TaskService, auth Authenticator, feed Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		t, err := tasks.Delete(c.Request().Context(), userID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		feed.Publish(activity.Activity{
			UserID: userID, Kind: "task-deleted", EntityType: "task", EntityID: t.ID, ProjectID: t.ProjectID, At: domain.Now(),
		})
		return c.NoContent(http.StatusNoContent)
	}
}
