package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"trellis-api/domain"
)

type searchResponse struct {
	Projects []domain.Project `json:"projects"`
	Tasks    []domain.Task    `json:"tasks"`
}

// getSearch runs a case-insensitive substring match over the caller's
// projects (name, description, tags) and tasks (title, description). There is
// no scoring or ranking; results keep the store's recency order.
func getSearch(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return err
		}
		query := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))
		if query == "" {
			return c.JSON(http.StatusOK, searchResponse{Projects: []domain.Project{}, Tasks: []domain.Task{}})
		}

		ctx := c.Request().Context()
		projects, err := store.ListProjects(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}
		tasks, err := store.ListAllTasks(ctx, userID)
		if err != nil {
			return writeError(c, err)
		}

		resp := searchResponse{Projects: []domain.Project{}, Tasks: []domain.Task{}}
		for _, p := range projects {
			if projectMatches(p, query) {
				resp.Projects = append(resp.Projects, p)
			}
		}
		for _, t := range tasks {
			if taskMatches(t, query) {
				resp.Tasks = append(resp.Tasks, t)
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func projectMatches(p domain.Project, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Description), query) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func taskMatches(t domain.Task, query string) bool {
	return strings.Contains(strings.ToLower(t.Title), query) ||
		strings.Contains(strings.ToLower(t.Description), query)
}
