package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/riverqueue/river"

	"github.com/gemforge/backend/internal/models"
)

// GeneratorTimeout bounds a single render call.
const GeneratorTimeout = 120 * time.Second

// RenderJobArgs is enqueued in the same transaction that spawns and pays for a job.
type RenderJobArgs struct {
	JobID   string `json:"job_id"`
	JobKind string `json:"job_kind"`
}

func (RenderJobArgs) Kind() string { return "render_image" }

// JobService defines the contract the worker needs to load a job and report the outcome.
type JobService interface {
	LoadJob(ctx context.Context, jobID string) (*models.Job, error)
	MarkJobDone(ctx context.Context, jobID, resultURL string) error
	MarkJobFailed(ctx context.Context, jobID, reason string) error
}

type generateRequest struct {
	JobID   string          `json:"job_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type generateResponse struct {
	ImageURL string `json:"image_url"`
}

type RenderWorker struct {
	river.WorkerDefaults[RenderJobArgs]
	jobService   JobService
	generatorURL string
	apiKey       string
	httpClient   *http.Client
	log          *slog.Logger
}

func NewRenderWorker(js JobService, generatorURL, apiKey string, log *slog.Logger) *RenderWorker {
	if log == nil {
		log = slog.Default()
	}
	return &RenderWorker{
		jobService:   js,
		generatorURL: generatorURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: GeneratorTimeout},
		log:          log,
	}
}

func (w *RenderWorker) Timeout(*river.Job[RenderJobArgs]) time.Duration {
	return GeneratorTimeout + 10*time.Second
}

func (w *RenderWorker) Work(ctx context.Context, job *river.Job[RenderJobArgs]) error {
	args := job.Args

	j, err := w.jobService.LoadJob(ctx, args.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", args.JobID, err)
	}
	if j.IsTerminal() {
		w.log.Info("render skipped, job already terminal", "job_id", j.ID, "status", j.Status)
		return nil
	}

	body, err := json.Marshal(generateRequest{JobID: j.ID, Kind: j.Kind, Payload: j.Payload})
	if err != nil {
		return w.failJob(ctx, j.ID, fmt.Sprintf("encode request: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.generatorURL, bytes.NewReader(body))
	if err != nil {
		return w.failJob(ctx, j.ID, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		if lastAttempt(job) {
			return w.failJob(ctx, j.ID, fmt.Sprintf("generator unreachable after %d attempts: %v", job.Attempt, err))
		}
		return fmt.Errorf("network error calling generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return w.failJob(ctx, j.ID, fmt.Sprintf("generator returned non-2xx status: %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return w.failJob(ctx, j.ID, "generator returned invalid JSON")
	}
	if out.ImageURL == "" {
		return w.failJob(ctx, j.ID, "generator returned no image_url")
	}

	if err := w.jobService.MarkJobDone(ctx, j.ID, out.ImageURL); err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	w.log.Info("render finished", "job_id", j.ID, "kind", j.Kind)
	return nil
}

// lastAttempt reports whether River will discard the job if this attempt errors.
func lastAttempt(job *river.Job[RenderJobArgs]) bool {
	return job.JobRow != nil && job.MaxAttempts > 0 && job.Attempt >= job.MaxAttempts
}

var errGeneratorRejected = errors.New("generator rejected job")

func (w *RenderWorker) failJob(ctx context.Context, jobID, reason string) error {
	w.log.Warn("render failed", "job_id", jobID, "reason", reason)
	if markErr := w.jobService.MarkJobFailed(ctx, jobID, reason); markErr != nil {
		return fmt.Errorf("%w (%s) and failed to mark job as failed: %w", errGeneratorRejected, reason, markErr)
	}
	return nil
}
