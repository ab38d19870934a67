package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "trading.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := New(Config{Log: zerolog.Nop(), Store: st, Port: 0, DevMode: true})
	return s, st
}

func TestHandleHealth_ReportsOK(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.DBHealthy)
}

func TestHandleReportSummary_ReflectsStoreState(t *testing.T) {
	s, st := newTestServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	now := time.Now().UTC()

	id, err := st.OpenPosition(ctx, domain.Position{
		Symbol: "XBTUSD", Strategy: "mean_reversion", PositionType: domain.PositionLong,
		EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.ClosePosition(ctx, id, now, 110, 1, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/report/summary", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body reportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Daily.TotalTrades)
	assert.Equal(t, 1, body.Daily.WinningTrades)
	assert.InDelta(t, 10.0, body.Daily.NetPnL, 1e-9)
}

func TestHandleClosedPositions_RespectsLimitParam(t *testing.T) {
	s, st := newTestServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		id, err := st.OpenPosition(ctx, domain.Position{
			Symbol: "XBTUSD", Strategy: "mean_reversion", PositionType: domain.PositionLong,
			EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
		})
		require.NoError(t, err)
		require.NoError(t, st.ClosePosition(ctx, id, now, 101, 1, 0))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/positions/closed?limit=2", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var positions []domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	assert.Len(t, positions, 2)
}

func TestHandleStrategiesStatus_EmptyWithNoTraders(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []strategyStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	assert.Empty(t, statuses)
}
