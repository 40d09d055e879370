package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	m, err := New("test")
	require.NoError(t, err)

	m.ObserveUpstream("list", "ok", 10*time.Millisecond)
	m.ObserveUpstream("list", "ok", 20*time.Millisecond)
	m.ObserveUpstream("signup", "server", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("list", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("signup", "server")))
}

func TestIncActionAndSessions(t *testing.T) {
	m, err := New("test")
	require.NoError(t, err)

	m.IncAction("unregister", "success")
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.boardActions.WithLabelValues("unregister", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("list", "ok", time.Millisecond)
		m.IncAction("signup", "error")
		m.SetActiveSessions(1)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New("board")
	require.NoError(t, err)
	m.IncAction("signup", "success")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `board_board_actions_total{action="signup",kind="success"} 1`)
}
