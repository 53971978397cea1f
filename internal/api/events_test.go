package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mlenz/conveyor/internal/model"
)

func TestStreamEventsUnknownJob(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/jobs/01JUNKJUNKJUNKJUNKJUNKJUNK/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamEventsFinishedJob(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Submit an echo job and wait for it to finish.
	resp, err := http.Post(ts.URL+"/v1/jobs", "application/json",
		bytes.NewBufferString(`{"kind":"echo","payload":{}}`))
	if err != nil {
		t.Fatalf("POST /v1/jobs: %v", err)
	}
	var j model.Job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	waitForJobStatus(t, srv.store, j.ID, model.StatusCompleted, 5*time.Second)

	// The event stream for a finished job ends immediately.
	resp, err = http.Get(ts.URL + "/v1/jobs/" + j.ID + "/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}

func TestStreamEventsDeliversStatusChanges(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// A sleep job long enough to subscribe before it finishes.
	resp, err := http.Post(ts.URL+"/v1/jobs", "application/json",
		bytes.NewBufferString(`{"kind":"sleep","payload":{"duration_ms":800}}`))
	if err != nil {
		t.Fatalf("POST /v1/jobs: %v", err)
	}
	var j model.Job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/v1/jobs/" + j.ID + "/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	var statuses []string
	sawDone := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: done" {
			sawDone = true
			continue
		}
		if !strings.HasPrefix(line, "data: ") || sawDone {
			continue
		}
		var ev struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		statuses = append(statuses, ev.Status)
	}

	if !sawDone {
		t.Error("stream ended without a done event")
	}
	if len(statuses) == 0 || statuses[len(statuses)-1] != model.StatusCompleted {
		t.Errorf("statuses = %v, want to end with completed", statuses)
	}
}
