package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gemforge/backend/internal/jobs"
	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/models"
	"github.com/gemforge/backend/internal/payments"
	"github.com/gemforge/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockJobs struct {
	spawned []jobs.SpawnRequest
	result  *jobs.SpawnResult
	err     error
	byID    map[string]*models.Job
}

func (m *mockJobs) SpawnPaid(_ context.Context, req jobs.SpawnRequest) (*jobs.SpawnResult, error) {
	m.spawned = append(m.spawned, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &jobs.SpawnResult{
		Job:             &models.Job{ID: req.JobID, UserID: req.UserID, Kind: req.Kind, Status: models.JobStatusPending},
		Cost:            req.Cost,
		NewDiamondCount: 10 - req.Cost,
	}, nil
}

func (m *mockJobs) GetJob(_ context.Context, userID uuid.UUID, jobID string) (*models.Job, error) {
	j, ok := m.byID[jobID]
	if !ok || j.UserID != userID {
		return nil, jobs.ErrJobNotFound
	}
	return j, nil
}

func (m *mockJobs) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]*models.Job, error) {
	var out []*models.Job
	for _, j := range m.byID {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

type mockCheckIns struct {
	result *services.CheckInResult
	err    error
}

func (m *mockCheckIns) CheckIn(context.Context, uuid.UUID) (*services.CheckInResult, error) {
	return m.result, m.err
}

type mockShares struct {
	gotImage uuid.UUID
	result   *services.ShareResult
	err      error
}

func (m *mockShares) Share(_ context.Context, _, imageID uuid.UUID) (*services.ShareResult, error) {
	m.gotImage = imageID
	return m.result, m.err
}

type mockPurchases struct {
	order    *models.PaymentOrder
	credited bool
	err      error
	hooks    []payments.Webhook
}

func (m *mockPurchases) CreateLink(_ context.Context, userID uuid.UUID, packageID string) (*models.PaymentOrder, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := payments.FindPackage(packageID); !ok {
		return nil, payments.ErrUnknownPackage
	}
	o := *m.order
	o.UserID = userID
	o.PackageID = packageID
	return &o, nil
}

func (m *mockPurchases) GetOrder(_ context.Context, userID uuid.UUID, code int64) (*models.PaymentOrder, error) {
	if m.order == nil || m.order.OrderCode != code || m.order.UserID != userID {
		return nil, payments.ErrOrderNotFound
	}
	return m.order, nil
}

func (m *mockPurchases) HandleWebhook(_ context.Context, wh payments.Webhook) (bool, error) {
	m.hooks = append(m.hooks, wh)
	return m.credited, m.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newRequest(method, target, body string, userID uuid.UUID) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

func newTestJobHandler(t *testing.T) (*JobHandler, *mockJobs) {
	t.Helper()
	v, err := jobs.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	mj := &mockJobs{byID: make(map[string]*models.Job)}
	return &JobHandler{Jobs: mj, Validator: v}, mj
}
