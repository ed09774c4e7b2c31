package api

import (
	"context"

	"trellis-api/activity"
	"trellis-api/domain"
)

// Store abstracts persistence for handlers. *storage.Storage and
// *storage.Cache both satisfy it.
type Store interface {
	domain.TaskStore

	InsertUser(ctx context.Context, u domain.User) error
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListProjects(ctx context.Context, userID string) ([]domain.Project, error)
	GetProject(ctx context.Context, userID, projectID string) (domain.Project, error)
	InsertProject(ctx context.Context, p domain.Project) error
	UpdateProject(ctx context.Context, userID, projectID string, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) (domain.Project, error)

	ListAllTasks(ctx context.Context, userID string) ([]domain.Task, error)
}

// GraphStore records relationships between projects.
type GraphStore interface {
	Link(ctx context.Context, ownerID, fromID, toID string, linkType domain.LinkType) error
	Links(ctx context.Context, ownerID, projectID string) ([]domain.Link, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Publisher records mutations on the activity feed. Publishing is best-effort
// and must never block a request.
type Publisher interface {
	Publish(a activity.Activity) bool
}

type errorResponse struct {
	Error string `json:"error"`
}

type taskResponse struct {
	Task domain.Task `json:"task"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type projectResponse struct {
	Project domain.Project `json:"project"`
}

type projectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type linksResponse struct {
	Links []domain.Link `json:"links"`
}
