package board

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"trellis-api/domain"
)

const remoteResponseMaxSize = 256 * 1024 // 256 KiB

// Remote is a Transitioner backed by the HTTP API. It issues
// PATCH /api/tasks/{id} with a status-only body and maps response codes onto
// the domain error taxonomy.
type Remote struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewRemote creates a Remote using http.DefaultClient unless hc is provided.
func NewRemote(baseURL, token string, hc *http.Client) *Remote {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Remote{BaseURL: baseURL, Token: token, HTTP: hc}
}

type transitionRequest struct {
	Status domain.TaskStatus `json:"status"`
}

type taskEnvelope struct {
	Task  domain.Task `json:"task"`
	Error string      `json:"error"`
}

// Transition implements Transitioner over the wire.
func (r *Remote) Transition(ctx context.Context, taskID string, target domain.TaskStatus) (domain.Task, error) {
	body, err := sonic.ConfigStd.Marshal(transitionRequest{Status: target})
	if err != nil {
		return domain.Task{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, r.BaseURL+"/api/tasks/"+taskID, bytes.NewReader(body))
	if err != nil {
		return domain.Task{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.Token)

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env taskEnvelope
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, remoteResponseMaxSize))
	if decErr := dec.Decode(&env); decErr != nil && resp.StatusCode == http.StatusOK {
		return domain.Task{}, decErr
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return env.Task, nil
	case http.StatusBadRequest:
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, env.Error)
	case http.StatusUnauthorized:
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrUnauthorized, env.Error)
	case http.StatusNotFound:
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrNotFound, env.Error)
	default:
		return domain.Task{}, fmt.Errorf("%w: unexpected status %d", domain.ErrUnavailable, resp.StatusCode)
	}
}
