package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/execution"
	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/metrics"
	"github.com/gemforge/backend/internal/models"
)

// ComicPanelCost is the flat price of rendering one comic panel.
const ComicPanelCost = 1

var (
	// ErrJobNotFound is returned for a missing job or one owned by another user.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobOwnedByOther is returned when a caller reuses a job id that belongs to someone else.
	ErrJobOwnedByOther = errors.New("job id already used by another user")
)

// GroupImageCost is one diamond per character plus one for the upscaler.
func GroupImageCost(characters int, useUpscaler bool) int {
	cost := characters
	if useUpscaler {
		cost++
	}
	return cost
}

// SpawnRequest is a validated paid-job request.
type SpawnRequest struct {
	JobID   string
	UserID  uuid.UUID
	Kind    string
	Payload json.RawMessage
	Cost    int
}

// SpawnResult is what the caller gets back. Duplicate marks an idempotent replay
// of an earlier request with the same job id, in which case nothing was charged.
type SpawnResult struct {
	Job             *models.Job
	Cost            int
	NewDiamondCount int
	Duplicate       bool
}

type Service interface {
	SpawnPaid(ctx context.Context, req SpawnRequest) (*SpawnResult, error)
	GetJob(ctx context.Context, userID uuid.UUID, jobID string) (*models.Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Job, error)
}

// Store is the job persistence the service needs. *Repository implements it.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Job, error)
	AdvanceTx(ctx context.Context, tx pgx.Tx, id, to, resultURL, errMsg string) (bool, error)
}

// ImageStore records finished renders.
type ImageStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, img *models.Image) error
}

// InsertRenderTxFunc enqueues a render job within the given transaction. Provided by main using river.Client.InsertTx.
type InsertRenderTxFunc func(ctx context.Context, tx pgx.Tx, args execution.RenderJobArgs) error

type service struct {
	store        Store
	images       ImageStore
	ledger       ledger.Service
	insertRender InsertRenderTxFunc
	log          *slog.Logger
}

// NewService creates a jobs service. insertRender is typically a closure over river.Client.InsertTx.
// Returns *service so it can be used as execution.JobService for the River worker.
func NewService(store Store, images ImageStore, l ledger.Service, insertRender InsertRenderTxFunc, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, images: images, ledger: l, insertRender: insertRender, log: log}
}

var (
	_ Service              = (*service)(nil)
	_ execution.JobService = (*service)(nil)
)

// SpawnPaid runs the paid-job policy: replay check, balance pre-check, then
// spawn + debit + enqueue + advance to pending in one transaction.
func (s *service) SpawnPaid(ctx context.Context, req SpawnRequest) (*SpawnResult, error) {
	existing, err := s.store.GetByID(ctx, req.JobID)
	if err == nil {
		return s.replay(ctx, existing, req.UserID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup job: %w", err)
	}

	ok, err := s.ledger.CheckBalance(ctx, req.UserID, req.Cost)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ledger.ErrInsufficientFunds
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	job := &models.Job{
		ID:      req.JobID,
		UserID:  req.UserID,
		Kind:    req.Kind,
		Payload: req.Payload,
		Cost:    req.Cost,
	}
	if err := s.ledger.SpawnJob(ctx, tx, job); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			// Lost a race with a concurrent request for the same id.
			_ = tx.Rollback(ctx)
			existing, getErr := s.store.GetByID(ctx, req.JobID)
			if getErr != nil {
				return nil, err
			}
			return s.replay(ctx, existing, req.UserID)
		}
		return nil, err
	}
	newBalance, err := s.ledger.Debit(ctx, tx, req.UserID, req.Cost, req.Kind, "job "+req.JobID)
	if err != nil {
		return nil, err
	}
	if err := s.insertRender(ctx, tx, execution.RenderJobArgs{JobID: job.ID, JobKind: job.Kind}); err != nil {
		return nil, fmt.Errorf("enqueue render: %w", err)
	}
	if _, err := s.store.AdvanceTx(ctx, tx, job.ID, models.JobStatusPending, "", ""); err != nil {
		return nil, fmt.Errorf("advance job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	job.Status = models.JobStatusPending
	s.log.Info("job spawned", "job_id", job.ID, "kind", job.Kind, "user_id", req.UserID, "cost", req.Cost)
	return &SpawnResult{Job: job, Cost: req.Cost, NewDiamondCount: newBalance}, nil
}

func (s *service) replay(ctx context.Context, existing *models.Job, userID uuid.UUID) (*SpawnResult, error) {
	if existing.UserID != userID {
		return nil, ErrJobOwnedByOther
	}
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SpawnResult{Job: existing, Cost: existing.Cost, NewDiamondCount: balance, Duplicate: true}, nil
}

func (s *service) GetJob(ctx context.Context, userID uuid.UUID, jobID string) (*models.Job, error) {
	j, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if j.UserID != userID {
		return nil, ErrJobNotFound
	}
	return j, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Job, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}

// LoadJob implements execution.JobService.
func (s *service) LoadJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.store.GetByID(ctx, jobID)
}

// MarkJobDone implements execution.JobService. Sets the result URL and records the image.
func (s *service) MarkJobDone(ctx context.Context, jobID, resultURL string) error {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	advanced, err := s.store.AdvanceTx(ctx, tx, jobID, models.JobStatusDone, resultURL, "")
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	id := job.ID
	if err := s.images.CreateTx(ctx, tx, &models.Image{ID: uuid.New(), UserID: job.UserID, JobID: &id, URL: resultURL}); err != nil {
		return fmt.Errorf("record image: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	metrics.RecordJobFinished(job.Kind, models.JobStatusDone)
	return nil
}

// MarkJobFailed implements execution.JobService. Fails the job and refunds its cost in one transaction.
func (s *service) MarkJobFailed(ctx context.Context, jobID, reason string) error {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	advanced, err := s.store.AdvanceTx(ctx, tx, jobID, models.JobStatusFailed, "", reason)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}
	if job.Cost > 0 {
		if _, err := s.ledger.Credit(ctx, tx, job.UserID, job.Cost, models.ReasonRefund, "refund for job "+job.ID); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	metrics.RecordJobFinished(job.Kind, models.JobStatusFailed)
	s.log.Warn("job failed and refunded", "job_id", job.ID, "user_id", job.UserID, "refund", job.Cost, "reason", reason)
	return nil
}
