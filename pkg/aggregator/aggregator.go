package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request dispatches one aggregation job. The job reads the staged model
// files from StagingDir and must invoke CallbackURL exactly once when done.
type Request struct {
	RoundID     string `json:"roundId"`
	StagingDir  string `json:"stagingDirectoryPath"`
	CallbackURL string `json:"callbackUrl"`
}

// Callback is the job's completion report. It is acknowledged with 2xx
// regardless of status so the job never retries into a duplicate finalize.
type Callback struct {
	RoundID      string `json:"roundId"`
	Status       string `json:"status"`
	ArtifactPath string `json:"producedArtifactPath,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Runner dispatches aggregation jobs to the external aggregation service.
// Dispatch is fire-and-forget: it returns once the job is accepted, not when
// it completes.
type Runner interface {
	Dispatch(ctx context.Context, req Request) error
}

type httpRunner struct {
	serviceURL string
	client     *http.Client
}

// NewHTTPRunner returns a Runner posting to the aggregation service's
// /aggregate endpoint.
func NewHTTPRunner(serviceURL string, timeout time.Duration) Runner {
	return &httpRunner{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (r *httpRunner) Dispatch(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serviceURL+"/aggregate", bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to dispatch aggregation job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregation service rejected job: %d", resp.StatusCode)
	}

	return nil
}
