package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemforge/backend/internal/jobs"
	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

func TestGenerateGroupImage_Success(t *testing.T) {
	h, mj := newTestJobHandler(t)
	user := uuid.New()

	body := `{"jobId":"job-1","characters":[{"name":"Ann"},{"name":"Bo"}],"useUpscaler":true}`
	rr := httptest.NewRecorder()
	h.GenerateGroupImage(rr, newRequest(http.MethodPost, "/generate-group-image", body, user))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, mj.spawned, 1)
	got := mj.spawned[0]
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, user, got.UserID)
	assert.Equal(t, models.JobKindGroupImage, got.Kind)
	assert.Equal(t, 3, got.Cost)
	assert.JSONEq(t, body, string(got.Payload))

	var resp spawnResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, models.JobStatusPending, resp.Status)
	assert.Equal(t, 3, resp.Cost)
	assert.Equal(t, 7, resp.NewDiamondCount)
	assert.False(t, resp.Duplicate)
}

func TestGenerateGroupImage_InvalidPayload(t *testing.T) {
	h, mj := newTestJobHandler(t)

	cases := map[string]string{
		"missing jobId":    `{"characters":[{"name":"Ann"}]}`,
		"no characters":    `{"jobId":"j","characters":[]}`,
		"seven characters": `{"jobId":"j","characters":[{"name":"a"},{"name":"b"},{"name":"c"},{"name":"d"},{"name":"e"},{"name":"f"},{"name":"g"}]}`,
		"malformed":        `{"jobId":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.GenerateGroupImage(rr, newRequest(http.MethodPost, "/generate-group-image", body, uuid.New()))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
	assert.Empty(t, mj.spawned, "invalid payloads must not reach the spawner")
}

func TestGenerateGroupImage_InsufficientFunds(t *testing.T) {
	h, mj := newTestJobHandler(t)
	mj.err = ledger.ErrInsufficientFunds

	rr := httptest.NewRecorder()
	h.GenerateGroupImage(rr, newRequest(http.MethodPost, "/generate-group-image", `{"jobId":"j","characters":[{"name":"a"}]}`, uuid.New()))

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
}

func TestGenerateGroupImage_Replay(t *testing.T) {
	h, mj := newTestJobHandler(t)
	mj.result = &jobs.SpawnResult{
		Job:             &models.Job{ID: "j", Status: models.JobStatusPending},
		Cost:            1,
		NewDiamondCount: 9,
		Duplicate:       true,
	}

	rr := httptest.NewRecorder()
	h.GenerateGroupImage(rr, newRequest(http.MethodPost, "/generate-group-image", `{"jobId":"j","characters":[{"name":"a"}]}`, uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"duplicate":true`)
}

func TestGenerateGroupImage_OtherOwnerConflict(t *testing.T) {
	h, mj := newTestJobHandler(t)
	mj.err = jobs.ErrJobOwnedByOther

	rr := httptest.NewRecorder()
	h.GenerateGroupImage(rr, newRequest(http.MethodPost, "/generate-group-image", `{"jobId":"j","characters":[{"name":"a"}]}`, uuid.New()))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestComicRenderPanel(t *testing.T) {
	h, mj := newTestJobHandler(t)

	rr := httptest.NewRecorder()
	body := `{"jobId":"panel-1","comicId":"c1","panelIndex":0,"prompt":"a cat on a roof"}`
	h.ComicRenderPanel(rr, newRequest(http.MethodPost, "/comic-render-panel", body, uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, mj.spawned, 1)
	assert.Equal(t, jobs.ComicPanelCost, mj.spawned[0].Cost)
	assert.Equal(t, models.JobKindComicPanel, mj.spawned[0].Kind)

	rr = httptest.NewRecorder()
	h.ComicRenderPanel(rr, newRequest(http.MethodPost, "/comic-render-panel", `{"jobId":"p2","comicId":"c1","panelIndex":-1,"prompt":"x"}`, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetJob_OwnerOnly(t *testing.T) {
	h, mj := newTestJobHandler(t)
	owner := uuid.New()
	mj.byID["j1"] = &models.Job{ID: "j1", UserID: owner, Status: models.JobStatusDone, ResultURL: "https://cdn/x.png"}

	r := newRequest(http.MethodGet, "/jobs/j1", "", owner)
	r.SetPathValue("id", "j1")
	rr := httptest.NewRecorder()
	h.GetJob(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"resultUrl":"https://cdn/x.png"`)

	r = newRequest(http.MethodGet, "/jobs/j1", "", uuid.New())
	r.SetPathValue("id", "j1")
	rr = httptest.NewRecorder()
	h.GetJob(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListJobs_EmptyIsArray(t *testing.T) {
	h, _ := newTestJobHandler(t)

	rr := httptest.NewRecorder()
	h.ListJobs(rr, newRequest(http.MethodGet, "/jobs", "", uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
