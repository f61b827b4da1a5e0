package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/testutil"
)

func observedBuilder(t *testing.T, c *Collector, root any) *builder.Builder {
	t.Helper()
	b, err := builder.New(context.Background(), root, builder.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Cleanup() })
	require.NoError(t, c.Observe(b))
	return b
}

func TestCollector_SuccessfulBuilds(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := New()
	src := testutil.Fixture(t, map[string]string{"a.txt": "A"})
	b := observedBuilder(t, c, testutil.NewMerge("", src, testutil.NewVeggies()))

	// --- Act ---
	require.NoError(t, b.Build(context.Background()))
	require.NoError(t, b.Build(context.Background()))

	// --- Assert ---
	assert.Equal(t, 2.0, prom.ToFloat64(c.BuildsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 0.0, prom.ToFloat64(c.BuildsInProgress))
	assert.Equal(t, 2.0, prom.ToFloat64(c.NodeBuildsTotal.WithLabelValues("MergePlugin", OutcomeSuccess)))
	assert.Equal(t, 2.0, prom.ToFloat64(c.NodeBuildsTotal.WithLabelValues("VeggiesPlugin", OutcomeSuccess)))
	assert.Equal(t, 2.0, prom.ToFloat64(c.NodeBuildsTotal.WithLabelValues("WatchedDir", OutcomeSuccess)))
	assert.Equal(t, 3, prom.CollectAndCount(c.NodeSelfDuration), "one series per node name")
	assert.Equal(t, 1, prom.CollectAndCount(c.BuildDuration))
}

func TestCollector_FailedBuild(t *testing.T) {
	t.Parallel()

	c := New()
	b := observedBuilder(t, c, testutil.NewFailing(errors.New("whoops"), ""))

	require.Error(t, b.Build(context.Background()))

	assert.Equal(t, 1.0, prom.ToFloat64(c.BuildsTotal.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, prom.ToFloat64(c.NodeBuildsTotal.WithLabelValues("FailingPlugin", OutcomeFailure)))
	assert.Equal(t, 0, prom.CollectAndCount(c.NodeSelfDuration))
}

func TestCollector_CanceledBuild(t *testing.T) {
	t.Parallel()

	c := New()
	b := observedBuilder(t, c, testutil.NewVeggies())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, b.Build(ctx))

	assert.Equal(t, 1.0, prom.ToFloat64(c.BuildsTotal.WithLabelValues(OutcomeCanceled)))
	assert.Equal(t, 0.0, prom.ToFloat64(c.BuildsInProgress))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := New()
	b := observedBuilder(t, c, testutil.NewVeggies())
	require.NoError(t, b.Build(context.Background()))
	rec := httptest.NewRecorder()

	// --- Act ---
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// --- Assert ---
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `treeforge_builds_total{outcome="success"} 1`), body)
	assert.Contains(t, body, "treeforge_node_self_seconds_bucket")
}

func TestCollector_IgnoresForeignPayloads(t *testing.T) {
	t.Parallel()

	c := New()

	assert.NotPanics(t, func() {
		c.onEndBuild()
		c.onEndBuild("not an event")
		c.onEndNode()
		c.onEndNode(42)
	})
	assert.Equal(t, 0, prom.CollectAndCount(c.BuildsTotal))
}
