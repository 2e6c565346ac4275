package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/services"
)

func TestDailyCheckIn(t *testing.T) {
	h := &RewardHandler{CheckIns: &mockCheckIns{result: &services.CheckInResult{Reward: 3, Streak: 2, NewDiamondCount: 13}}}

	rr := httptest.NewRecorder()
	h.DailyCheckIn(rr, newRequest(http.MethodPost, "/daily-check-in", "", uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"reward":3,"streak":2,"newDiamondCount":13}`, rr.Body.String())
}

func TestDailyCheckIn_AlreadyToday(t *testing.T) {
	h := &RewardHandler{CheckIns: &mockCheckIns{err: services.ErrAlreadyCheckedIn}}

	rr := httptest.NewRecorder()
	h.DailyCheckIn(rr, newRequest(http.MethodPost, "/daily-check-in", "", uuid.New()))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestShareImage(t *testing.T) {
	img := uuid.New()
	ms := &mockShares{result: &services.ShareResult{ImageID: img, NewDiamondCount: 4, Tickets: 1}}
	h := &RewardHandler{Shares: ms}

	rr := httptest.NewRecorder()
	h.ShareImage(rr, newRequest(http.MethodPost, "/share-image", `{"imageId":"`+img.String()+`"}`, uuid.New()))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, img, ms.gotImage)
	assert.Contains(t, rr.Body.String(), `"tickets":1`)
}

func TestShareImage_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad id", `{"imageId":"nope"}`, nil, http.StatusBadRequest},
		{"missing", `{"imageId":"` + uuid.NewString() + `"}`, services.ErrImageNotFound, http.StatusNotFound},
		{"not owner", `{"imageId":"` + uuid.NewString() + `"}`, services.ErrForbidden, http.StatusForbidden},
		{"already public", `{"imageId":"` + uuid.NewString() + `"}`, services.ErrAlreadyPublic, http.StatusConflict},
		{"broke", `{"imageId":"` + uuid.NewString() + `"}`, ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &RewardHandler{Shares: &mockShares{err: tc.err}}
			rr := httptest.NewRecorder()
			h.ShareImage(rr, newRequest(http.MethodPost, "/share-image", tc.body, uuid.New()))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}
