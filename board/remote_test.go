package board

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"trellis-api/domain"
)

func TestRemoteTransitionSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/tasks/t1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("unexpected authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Status string `json:"status"`
		}
		if err := sonic.ConfigStd.Unmarshal(body, &req); err != nil || req.Status != "DOING" {
			t.Errorf("unexpected request body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		payload, _ := sonic.ConfigStd.Marshal(map[string]domain.Task{
			"task": {ID: "t1", ProjectID: "p1", Title: "move me", Status: domain.StatusDoing},
		})
		w.Write(payload)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "token-123", srv.Client())
	task, err := remote.Transition(context.Background(), "t1", domain.StatusDoing)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if task.ID != "t1" || task.Status != domain.StatusDoing {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestRemoteTransitionErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, domain.ErrInvalidArgument},
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"server error", http.StatusInternalServerError, domain.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			remote := NewRemote(srv.URL, "tok", srv.Client())
			_, err := remote.Transition(context.Background(), "t1", domain.StatusDone)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRemoteTransitionTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	remote := NewRemote(srv.URL, "tok", nil)
	_, err := remote.Transition(context.Background(), "t1", domain.StatusDone)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
