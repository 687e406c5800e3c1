package observability

import (
	"context"
	"net/http"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joinnow/internal/common/logger"
)

func TestRecordRequest_ExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := New("joinnow-test", reg, logger.NewTestLogger(t))
	defer obs.Shutdown()

	ctx := context.Background()
	obs.TrackActive(ctx, 1)
	obs.RecordRequest(ctx, http.MethodPost, "/submit", http.StatusSeeOther, 12*time.Millisecond)
	obs.TrackActive(ctx, -1)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.Contains(t, names, "http.server.requests_total")
	assert.Contains(t, names, "http.server.duration_milliseconds")
	assert.Contains(t, names, "http.server.active_requests")
}

func TestNilObservability_NoOp(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordRequest(context.Background(), http.MethodGet, "/", http.StatusOK, time.Millisecond)
		obs.TrackActive(context.Background(), 1)
		obs.Shutdown()
	})
}

func TestEmptyObservability_NoOp(t *testing.T) {
	obs := &Observability{}
	assert.NotPanics(t, func() {
		obs.RecordRequest(context.Background(), http.MethodGet, "/", http.StatusOK, time.Millisecond)
		obs.Shutdown()
	})
}
