package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"trellis-api/domain"
)

// Storage provides access to the document stores. Users live in their own
// table; projects and tasks each get one. PartitionKey is always the owning
// user (the email key for users), so every query is ownership-scoped by
// construction.
type Storage struct {
	userTable    *aztables.Client
	projectTable *aztables.Client
	taskTable    *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, usersTable, projectsTable, tasksTable string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		userTable:    svc.NewClient(usersTable),
		projectTable: svc.NewClient(projectsTable),
		taskTable:    svc.NewClient(tasksTable),
	}, nil
}

func statusCodeIs(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

func filterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t := parseTime(raw)
	return &t
}

// --- users ---

type userEntity struct {
	aztables.Entity
	UserID       string `json:"UserID"`
	Email        string `json:"Email"`
	PasswordHash string `json:"PasswordHash"`
	CreatedAt    string `json:"CreatedAt"`
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InsertUser persists a new account. An existing email yields ErrConflict.
func (s *Storage) InsertUser(ctx context.Context, u domain.User) error {
	key := emailKey(u.Email)
	ent := userEntity{
		Entity:       aztables.Entity{PartitionKey: key, RowKey: key},
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := s.userTable.AddEntity(ctx, data, nil); err != nil {
		if statusCodeIs(err, 409) {
			return fmt.Errorf("%w: email already in use", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// FindUserByEmail looks up an account by email.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	key := emailKey(email)
	resp, err := s.userTable.GetEntity(ctx, key, key, nil)
	if err != nil {
		if statusCodeIs(err, 404) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           ent.UserID,
		Email:        ent.Email,
		PasswordHash: ent.PasswordHash,
		CreatedAt:    parseTime(ent.CreatedAt),
	}, nil
}

// --- projects ---

type projectEntity struct {
	aztables.Entity
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Objectives  string `json:"Objectives"`
	Tags        string `json:"Tags"`
	Deadline    string `json:"Deadline"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(raw string) []string {
	values := []string{}
	if raw == "" {
		return values
	}
	_ = json.Unmarshal([]byte(raw), &values)
	return values
}

func projectToEntity(p domain.Project) projectEntity {
	ent := projectEntity{
		Entity:      aztables.Entity{PartitionKey: p.CreatedBy, RowKey: p.ID},
		Name:        p.Name,
		Description: p.Description,
		Objectives:  encodeStrings(p.Objectives),
		Tags:        encodeStrings(p.Tags),
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if p.Deadline != nil {
		ent.Deadline = formatTime(*p.Deadline)
	}
	return ent
}

func entityToProject(ent projectEntity) domain.Project {
	return domain.Project{
		ID:          ent.RowKey,
		Name:        ent.Name,
		Description: ent.Description,
		Objectives:  decodeStrings(ent.Objectives),
		Tags:        decodeStrings(ent.Tags),
		Deadline:    parseOptionalTime(ent.Deadline),
		CreatedBy:   ent.PartitionKey,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
	}
}

// ListProjects retrieves the caller's projects most-recently-updated first.
func (s *Storage) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	filter := "PartitionKey eq '" + filterValue(userID) + "'"
	pager := s.projectTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	projects := []domain.Project{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent projectEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			projects = append(projects, entityToProject(ent))
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

// GetProject retrieves one project owned by the caller.
func (s *Storage) GetProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	resp, err := s.projectTable.GetEntity(ctx, userID, projectID, nil)
	if err != nil {
		if statusCodeIs(err, 404) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	var ent projectEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Project{}, err
	}
	return entityToProject(ent), nil
}

// InsertProject persists a new project.
func (s *Storage) InsertProject(ctx context.Context, p domain.Project) error {
	data, err := json.Marshal(projectToEntity(p))
	if err != nil {
		return err
	}
	if _, err := s.projectTable.AddEntity(ctx, data, nil); err != nil {
		if statusCodeIs(err, 409) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// UpdateProject performs a partial merge and returns the updated record.
// Concurrent writers are resolved by ETag: a lost race re-reads and reapplies.
func (s *Storage) UpdateProject(ctx context.Context, userID, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	for {
		resp, err := s.projectTable.GetEntity(ctx, userID, projectID, nil)
		if err != nil {
			if statusCodeIs(err, 404) {
				return domain.Project{}, domain.ErrNotFound
			}
			return domain.Project{}, err
		}
		var ent projectEntity
		if err := json.Unmarshal(resp.Value, &ent); err != nil {
			return domain.Project{}, err
		}
		p := entityToProject(ent)
		patch.Apply(&p)

		data, err := json.Marshal(projectToEntity(p))
		if err != nil {
			return domain.Project{}, err
		}
		etag := azcore.ETag(resp.ETag)
		_, err = s.projectTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{
			IfMatch:    &etag,
			UpdateMode: aztables.UpdateModeReplace,
		})
		if err != nil {
			if statusCodeIs(err, 412) {
				continue
			}
			if statusCodeIs(err, 404) {
				return domain.Project{}, domain.ErrNotFound
			}
			return domain.Project{}, err
		}
		return p, nil
	}
}

// DeleteProject removes a project and returns the deleted record. Tasks are
// not cascaded; see the orphan test in the api package.
func (s *Storage) DeleteProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	p, err := s.GetProject(ctx, userID, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if _, err := s.projectTable.DeleteEntity(ctx, userID, projectID, nil); err != nil {
		if statusCodeIs(err, 404) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	return p, nil
}

// --- tasks ---

type taskEntity struct {
	aztables.Entity
	ProjectID   string `json:"ProjectID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority"`
	DueAt       string `json:"DueAt"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

func taskToEntity(t domain.Task) taskEntity {
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: t.CreatedBy, RowKey: t.ID},
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if t.DueAt != nil {
		ent.DueAt = formatTime(*t.DueAt)
	}
	return ent
}

func entityToTask(ent taskEntity) domain.Task {
	return domain.Task{
		ID:          ent.RowKey,
		ProjectID:   ent.ProjectID,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.TaskStatus(ent.Status),
		Priority:    domain.TaskPriority(ent.Priority),
		DueAt:       parseOptionalTime(ent.DueAt),
		CreatedBy:   ent.PartitionKey,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
	}
}

// GetTask retrieves one task owned by the caller.
func (s *Storage) GetTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, userID, taskID, nil)
	if err != nil {
		if statusCodeIs(err, 404) {
			return domain.Task{}, domain.ErrNotFound
		}
		return domain.Task{}, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	return entityToTask(ent), nil
}

// InsertTask persists a new task.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(taskToEntity(t))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, data, nil); err != nil {
		if statusCodeIs(err, 409) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// UpdateTask performs a partial merge as a single atomic entity write and
// returns the updated record. Only fields present in the patch change.
func (s *Storage) UpdateTask(ctx context.Context, userID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	for {
		resp, err := s.taskTable.GetEntity(ctx, userID, taskID, nil)
		if err != nil {
			if statusCodeIs(err, 404) {
				return domain.Task{}, domain.ErrNotFound
			}
			return domain.Task{}, err
		}
		var ent taskEntity
		if err := json.Unmarshal(resp.Value, &ent); err != nil {
			return domain.Task{}, err
		}
		t := entityToTask(ent)
		patch.Apply(&t)

		data, err := json.Marshal(taskToEntity(t))
		if err != nil {
			return domain.Task{}, err
		}
		etag := azcore.ETag(resp.ETag)
		_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{
			IfMatch:    &etag,
			UpdateMode: aztables.UpdateModeReplace,
		})
		if err != nil {
			if statusCodeIs(err, 412) {
				continue
			}
			if statusCodeIs(err, 404) {
				return domain.Task{}, domain.ErrNotFound
			}
			return domain.Task{}, err
		}
		return t, nil
	}
}

// DeleteTask removes a task and returns the deleted record.
func (s *Storage) DeleteTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	t, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.DeleteEntity(ctx, userID, taskID, nil); err != nil {
		if statusCodeIs(err, 404) {
			return domain.Task{}, domain.ErrNotFound
		}
		return domain.Task{}, err
	}
	return t, nil
}

// ListTasks retrieves one project's tasks most-recently-updated first.
func (s *Storage) ListTasks(ctx context.Context, userID, projectID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + filterValue(userID) + "' and ProjectID eq '" + filterValue(projectID) + "'"
	return s.listTasks(ctx, filter)
}

// ListAllTasks retrieves every task the caller owns, most-recently-updated first.
func (s *Storage) ListAllTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + filterValue(userID) + "'"
	return s.listTasks(ctx, filter)
}

func (s *Storage) listTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, entityToTask(ent))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	return tasks, nil
}
