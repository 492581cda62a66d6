package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chanhound/chanhound/internal/source"
	"github.com/chanhound/chanhound/internal/source/apiclient"
)

func TestFetchHistory(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/channels/1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		query := r.URL.Query()
		if got := query.Get("limit"); got != "3" {
			t.Errorf("limit = %q, want 3", got)
		}
		if got := query.Get("order"); got != "asc" {
			t.Errorf("order = %q, want asc", got)
		}
		if got := query.Get("after"); got != "42" {
			t.Errorf("after = %q, want 42", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages": [
			{"channel_id": 1, "id": 43, "kind": "default", "content": "a", "author_id": 7},
			{"channel_id": 1, "id": 44, "kind": "default", "content": "b", "author_id": 8}
		]}`))
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	after := int64(42)
	msgs, err := client.FetchHistory(context.Background(), 1, 3, &after, true)
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 43 || msgs[1].ID != 44 {
		t.Errorf("unexpected ids: %d, %d", msgs[0].ID, msgs[1].ID)
	}
}

func TestFetchHistory_NewestFirstWithoutCursor(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("order"); got != "desc" {
			t.Errorf("order = %q, want desc", got)
		}
		if query.Has("after") {
			t.Error("no after parameter expected for a nil cursor")
		}

		_, _ = w.Write([]byte(`{"messages": []}`))
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	msgs, err := client.FetchHistory(context.Background(), 1, 100, nil, false)
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty page, got %d messages", len(msgs))
	}
}

func TestFetchHistory_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	_, err := client.FetchHistory(context.Background(), 1, 100, nil, true)
	if !errors.Is(err, source.ErrTransient) {
		t.Errorf("FetchHistory() error = %v, want ErrTransient", err)
	}
}

func TestFetchHistory_ConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	_, err := client.FetchHistory(context.Background(), 1, 100, nil, true)
	if !errors.Is(err, source.ErrTransient) {
		t.Errorf("FetchHistory() error = %v, want ErrTransient", err)
	}
}

func TestFetchHistory_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	_, err := client.FetchHistory(context.Background(), 1, 100, nil, true)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if errors.Is(err, source.ErrTransient) {
		t.Error("a 403 must not be marked transient")
	}
}

func TestThread(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/channels/1/messages/10/thread" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 20,
			"name": "side discussion",
			"message_count": 1,
			"owner_id": 7,
			"messages": [{"channel_id": 20, "id": 100, "kind": "default", "content": "hi", "author_id": 8}]
		}`))
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	thread, err := client.Thread(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Thread() error = %v", err)
	}
	if thread == nil {
		t.Fatal("expected a thread")
	}
	if thread.ID != 20 || thread.Name != "side discussion" {
		t.Errorf("unexpected thread header: %+v", thread)
	}
	if len(thread.Messages) != 1 || thread.Messages[0].ID != 100 {
		t.Errorf("unexpected thread messages: %+v", thread.Messages)
	}
}

func TestThread_NotFoundYieldsNil(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	thread, err := client.Thread(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Thread() error = %v", err)
	}
	if thread != nil {
		t.Errorf("expected nil thread for a parent without one, got %+v", thread)
	}
}

func TestFetchHistory_MalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := apiclient.NewClient(apiclient.WithBaseURL(server.URL + "/api/v1"))

	if _, err := client.FetchHistory(context.Background(), 1, 100, nil, true); err == nil {
		t.Fatal("expected decode error")
	}
}
