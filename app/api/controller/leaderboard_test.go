package controller

import (
	"net/http"
	"testing"

	"github.com/fractal-terminal/terminalx/pkg/analytics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLeaderboard_Disabled(t *testing.T) {
	h := testHandler(t, newTestApp(&fakeAuditor{}, &fakePrices{}))

	rec := do(t, h, http.MethodGet, "/?action=leaderboard", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec.Body.String())["code"])
}

func TestHandleLeaderboard(t *testing.T) {
	lb := &fakeLeaderboard{entries: []analytics.LeaderboardEntry{
		{Rank: 1, Address: testAddress, NetWorthUSD: decimal.NewFromInt(100)},
	}}
	app := newTestApp(&fakeAuditor{}, &fakePrices{})
	app.Leaderboard = lb
	h := testHandler(t, app)

	rec := do(t, h, http.MethodGet, "/?action=leaderboard&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, 5, lb.limit)

	data := decodeBody(t, rec.Body.String())["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, testAddress, data[0].(map[string]any)["address"])

	rec = do(t, h, http.MethodGet, "/?action=leaderboard&limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lb.err = errDown
	rec = do(t, h, http.MethodGet, "/?action=leaderboard", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, lb.limit)
}
