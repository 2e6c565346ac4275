package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gemforge/backend/internal/models"
)

type stubValidator struct {
	id  uuid.UUID
	err error
	got string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	s.got = token
	return s.id, s.err
}

// okHandler writes 200 and the user id from context (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(UserIDFromCtx(r.Context()).String()))
})

func TestBearerAuth_Valid(t *testing.T) {
	user := uuid.New()
	v := &stubValidator{id: user}
	h := BearerAuth(v)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer  tok-123 ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.String(), rec.Body.String())
	assert.Equal(t, "tok-123", v.got)
}

func TestBearerAuth_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		v      *stubValidator
	}{
		{"missing header", "", &stubValidator{id: uuid.New()}},
		{"wrong scheme", "Basic abc", &stubValidator{id: uuid.New()}},
		{"empty token", "Bearer ", &stubValidator{id: uuid.New()}},
		{"validator error", "Bearer tok", &stubValidator{err: errors.New("expired")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := BearerAuth(tc.v)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

type stubLookup struct {
	acc *models.Account
	err error
}

func (s *stubLookup) GetByID(context.Context, uuid.UUID) (*models.Account, error) {
	return s.acc, s.err
}

func TestRequireAdmin(t *testing.T) {
	user := uuid.New()
	cases := []struct {
		name   string
		lookup *stubLookup
		want   int
	}{
		{"admin", &stubLookup{acc: &models.Account{ID: user, IsAdmin: true}}, http.StatusOK},
		{"not admin", &stubLookup{acc: &models.Account{ID: user}}, http.StatusForbidden},
		{"unknown account", &stubLookup{err: errors.New("no rows in result set")}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := RequireAdmin(tc.lookup, nil)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/admin-users", nil)
			req = req.WithContext(WithUserID(req.Context(), user))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireAdmin_WithoutBearer(t *testing.T) {
	h := RequireAdmin(&stubLookup{}, nil)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin-users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
