package gpsr

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpsr/internal/config"
	"gpsr/internal/evo"
	"gpsr/internal/metrics"
	"gpsr/internal/stats"
)

func testSettings() config.Settings {
	s := config.Default()
	seed := int64(12345)
	s.RandomSeed = &seed
	s.PopulationSize = 20
	s.TournamentSize = 3
	s.MaxGenerations = 25
	s.InitialHeight = 3
	s.MaxCrossoverHeight = 6
	s.TimeBudget = 0
	return s
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRunPersistsRecordHistoryAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{})

	summary, err := c.Run(ctx, RunRequest{Settings: testSettings()})
	require.NoError(t, err)
	require.NotEmpty(t, summary.ID)
	assert.Contains(t, []string{evo.StateConverged.String(), evo.StateBudgetExhausted.String()}, summary.State)
	assert.True(t, summary.Seeded)
	assert.Equal(t, int64(12345), summary.Seed)
	assert.Equal(t, 20, summary.Settings.PopulationSize)
	assert.Len(t, summary.BestByGeneration, summary.Generations)
	assert.NotEmpty(t, summary.Final.Expression)

	runs, err := c.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.ID, runs[0].ID)

	latest, err := c.GetRun(ctx, LatestRun)
	require.NoError(t, err)
	assert.Equal(t, summary.RunRecord, latest)

	history, err := c.FitnessHistory(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.BestByGeneration, history)

	diagnostics, err := c.Diagnostics(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, diagnostics)
	assert.Equal(t, 1, diagnostics[0].Generation)
	assert.Equal(t, "init", diagnostics[0].Step)
	assert.Equal(t, summary.Generations, diagnostics[len(diagnostics)-1].Generation)
}

func TestRunIsReproducibleForSeed(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{})

	a, err := c.Run(ctx, RunRequest{Settings: testSettings()})
	require.NoError(t, err)
	b, err := c.Run(ctx, RunRequest{Settings: testSettings()})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.BestByGeneration, b.BestByGeneration)
	assert.Equal(t, a.First, b.First)
	assert.Equal(t, a.Final, b.Final)
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	c := newTestClient(t, Options{})
	s := testSettings()
	s.PopulationSize = 0
	_, err := c.Run(context.Background(), RunRequest{Settings: s})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestRunFeedsMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	c := newTestClient(t, Options{Metrics: collector})

	summary, err := c.Run(context.Background(), RunRequest{Settings: testSettings()})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RunsTotal.WithLabelValues(summary.State)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.GenerationsTotal.WithLabelValues("init")))
}

func TestSweepWritesGroupedResults(t *testing.T) {
	c := newTestClient(t, Options{})
	var out bytes.Buffer

	summaries, err := c.Sweep(context.Background(), SweepRequest{
		Base:              testSettings(),
		GenerationMethods: []string{"FULL", "GROW"},
		Samples:           2,
	}, &out)
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	// a seeded stream is recycled to the same seed for every sample
	assert.Equal(t, summaries[0].BestByGeneration, summaries[1].BestByGeneration)
	assert.Equal(t, "FULL", summaries[0].Settings.GenerationMethod)
	assert.Equal(t, "GROW", summaries[2].Settings.GenerationMethod)

	groups, err := stats.ReadResults(&out)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "FULL", groups[0].Rows[0][9])
	assert.Equal(t, "GROW", groups[1].Rows[0][9])

	runs, err := c.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestSweepStopsWhenCancelled(t *testing.T) {
	c := newTestClient(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	summaries, err := c.Sweep(ctx, SweepRequest{Base: testSettings(), Samples: 3}, &out)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Contains(t, out.String(), "Generation,")
}

func TestSweepValidatesRequest(t *testing.T) {
	c := newTestClient(t, Options{})
	_, err := c.Sweep(context.Background(), SweepRequest{Base: testSettings()}, nil)
	require.Error(t, err)

	_, err = c.Sweep(context.Background(), SweepRequest{
		Base:              testSettings(),
		GenerationMethods: []string{"SIDEWAYS"},
		Samples:           1,
	}, nil)
	require.Error(t, err)
}

func TestExportWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{})
	summary, err := c.Run(ctx, RunRequest{Settings: testSettings()})
	require.NoError(t, err)

	dir, err := c.Export(ctx, summary.ID, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, summary.ID, filepath.Base(dir))
	for _, file := range []string{"run.json", "fitness_history.json", "generation_diagnostics.json", "fitness_series.csv"} {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err, file)
	}

	series, ok, err := stats.ReadFitnessSeries(filepath.Dir(dir), summary.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.BestByGeneration, series)
}

func TestLookupErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{})

	_, err := c.FitnessHistory(ctx, LatestRun)
	assert.EqualError(t, err, "no runs available")

	_, err = c.Diagnostics(ctx, "missing")
	assert.EqualError(t, err, "run not found: missing")

	_, err = c.Export(ctx, "missing", t.TempDir())
	assert.Error(t, err)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(context.Background(), Options{StoreKind: "etcd"})
	assert.Error(t, err)
}

func TestSQLiteClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, Options{StoreKind: "sqlite", DBPath: filepath.Join(t.TempDir(), "gpsr.db")})

	summary, err := c.Run(ctx, RunRequest{Settings: testSettings(), DiagnosticsEvery: 5})
	require.NoError(t, err)

	got, err := c.GetRun(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Final, got.Final)
	assert.Equal(t, summary.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}
