package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlenz/conveyor/internal/model"
)

// Builtin job kinds.
const (
	KindEcho   = "echo"
	KindDigest = "digest"
	KindSleep  = "sleep"
)

// maxSleepMS caps the sleep handler so a bad payload cannot pin a worker for hours.
const maxSleepMS = 60_000

// RegisterBuiltins adds the built-in handlers to the registry.
func RegisterBuiltins(r *Registry) {
	r.Register(KindEcho, EchoHandler{})
	r.Register(KindDigest, DigestHandler{})
	r.Register(KindSleep, SleepHandler{})
}

// EchoHandler returns the job payload unchanged.
type EchoHandler struct{}

func (EchoHandler) Run(_ context.Context, job *model.Job) ([]byte, error) {
	return job.Payload, nil
}

func (EchoHandler) Describe() Info {
	return Info{Name: KindEcho, Description: "returns the payload unchanged"}
}

// DigestHandler returns the SHA-256 digest of the job payload.
type DigestHandler struct{}

func (DigestHandler) Run(_ context.Context, job *model.Job) ([]byte, error) {
	sum := sha256.Sum256(job.Payload)
	out, err := json.Marshal(map[string]string{"sha256": hex.EncodeToString(sum[:])})
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	return out, nil
}

func (DigestHandler) Describe() Info {
	return Info{Name: KindDigest, Description: "returns the SHA-256 digest of the payload"}
}

// sleepRequest is the JSON payload for the sleep handler.
type sleepRequest struct {
	DurationMS int `json:"duration_ms"`
}

// SleepHandler waits for the requested duration, honoring the job deadline.
// Useful for soak testing the dispatcher without doing real work.
type SleepHandler struct{}

func (SleepHandler) Run(ctx context.Context, job *model.Job) ([]byte, error) {
	var req sleepRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return nil, fmt.Errorf("parse sleep payload: %w", err)
	}
	if req.DurationMS < 0 || req.DurationMS > maxSleepMS {
		return nil, fmt.Errorf("duration_ms must be between 0 and %d", maxSleepMS)
	}

	select {
	case <-time.After(time.Duration(req.DurationMS) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	out, err := json.Marshal(map[string]int{"slept_ms": req.DurationMS})
	if err != nil {
		return nil, fmt.Errorf("marshal sleep result: %w", err)
	}
	return out, nil
}

func (SleepHandler) Describe() Info {
	return Info{Name: KindSleep, Description: "sleeps for duration_ms milliseconds"}
}
