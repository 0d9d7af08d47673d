package gpsr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gpsr/internal/config"
	"gpsr/internal/evo"
	"gpsr/internal/metrics"
	"gpsr/internal/model"
	"gpsr/internal/random"
	"gpsr/internal/stats"
	"gpsr/internal/storage"
)

const (
	defaultDBPath     = "gpsr.db"
	defaultExportsDir = "exports"
	// LatestRun resolves to the most recently stored run.
	LatestRun = "latest"
)

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
	// Metrics, when set, observes every run this client drives.
	Metrics *metrics.Collector
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

type RunRequest struct {
	Settings config.Settings
	// DiagnosticsEvery keeps every n-th generation report; below 1 keeps all.
	DiagnosticsEvery int
	// Observer receives driver notifications alongside the client's own.
	Observer evo.Observer
}

type RunSummary struct {
	model.RunRecord
	BestByGeneration []float64
}

type SweepRequest struct {
	Base              config.Settings
	GenerationMethods []string
	PopulationSizes   []int
	TournamentSizes   []int
	// Samples is the number of runs per combination.
	Samples          int
	DiagnosticsEvery int
	// Budget stops the sweep before the next run once exceeded; zero disables it.
	Budget time.Duration
}

func New(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		store:   store,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run drives one evolution with req.Settings and stores its record, fitness
// history and diagnostics.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	cfg, err := req.Settings.EvolutionConfig()
	if err != nil {
		return RunSummary{}, fmt.Errorf("invalid settings: %w", err)
	}
	stream := newStream(req.Settings)
	return c.run(ctx, req.Settings, cfg, stream, req.DiagnosticsEvery, req.Observer)
}

// Sweep runs req.Samples runs for every generation method, population size and
// tournament size combination, appending one results row per run to w and a
// blank separator after each combination. Cancellation and an exhausted budget
// end the sweep early without an error.
func (c *Client) Sweep(ctx context.Context, req SweepRequest, w io.Writer) ([]RunSummary, error) {
	if req.Samples < 1 {
		return nil, errors.New("sweep samples must be >= 1")
	}
	methods := req.GenerationMethods
	if len(methods) == 0 {
		methods = []string{req.Base.GenerationMethod}
	}
	populations := req.PopulationSizes
	if len(populations) == 0 {
		populations = []int{req.Base.PopulationSize}
	}
	tournaments := req.TournamentSizes
	if len(tournaments) == 0 {
		tournaments = []int{req.Base.TournamentSize}
	}

	type combination struct {
		settings config.Settings
		cfg      evo.Config
	}
	var combos []combination
	for _, method := range methods {
		for _, population := range populations {
			for _, tournament := range tournaments {
				s := req.Base.Clone()
				s.GenerationMethod = method
				s.PopulationSize = population
				s.TournamentSize = tournament
				cfg, err := s.EvolutionConfig()
				if err != nil {
					return nil, fmt.Errorf("sweep %s/%d/%d: %w", method, population, tournament, err)
				}
				combos = append(combos, combination{settings: s, cfg: cfg})
			}
		}
	}

	var results *stats.ResultsWriter
	if w != nil {
		results = stats.NewResultsWriter(w)
		if err := results.WriteHeader(); err != nil {
			return nil, fmt.Errorf("write results header: %w", err)
		}
	}

	start := c.now()
	stream := newStream(req.Base)
	summaries := make([]RunSummary, 0, len(combos)*req.Samples)
	for _, combo := range combos {
		for sample := 0; sample < req.Samples; sample++ {
			if reason := c.sweepStop(ctx, start, req.Budget); reason != "" {
				c.logger.Info("sweep stopped", "reason", reason, "runs", len(summaries))
				return summaries, nil
			}
			stream.Recycle()
			summary, err := c.run(ctx, combo.settings, combo.cfg, stream, req.DiagnosticsEvery, nil)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("sweep stopped", "reason", "interrupted", "runs", len(summaries))
					return summaries, nil
				}
				return summaries, err
			}
			summaries = append(summaries, summary)
			if results != nil {
				if err := results.WriteRun(summary.RunRecord); err != nil {
					return summaries, fmt.Errorf("write results row: %w", err)
				}
			}
			c.logger.Info("sweep run finished",
				"method", combo.settings.GenerationMethod,
				"population", combo.settings.PopulationSize,
				"tournament", combo.settings.TournamentSize,
				"sample", sample+1,
				"state", summary.State,
				"generations", summary.Generations,
			)
		}
		if results != nil {
			if err := results.WriteSeparator(); err != nil {
				return summaries, fmt.Errorf("write results separator: %w", err)
			}
		}
	}
	return summaries, nil
}

func (c *Client) sweepStop(ctx context.Context, start time.Time, budget time.Duration) string {
	if ctx.Err() != nil {
		return "interrupted"
	}
	if budget > 0 && c.now().Sub(start) > budget {
		return "budget exhausted"
	}
	return ""
}

// Runs lists stored runs, newest first; limit <= 0 lists all of them.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx, limit)
}

// GetRun returns one stored run; an empty id or LatestRun picks the newest.
func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	return c.lookupRun(ctx, runID)
}

func (c *Client) FitnessHistory(ctx context.Context, runID string) ([]float64, error) {
	run, err := c.lookupRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", run.ID)
	}
	return history, nil
}

func (c *Client) Diagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, error) {
	run, err := c.lookupRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation diagnostics not found for run id: %s", run.ID)
	}
	return diagnostics, nil
}

// Export writes a run's stored artifacts under dir/<run id> and returns that
// directory.
func (c *Client) Export(ctx context.Context, runID, dir string) (string, error) {
	if dir == "" {
		dir = defaultExportsDir
	}
	run, err := c.lookupRun(ctx, runID)
	if err != nil {
		return "", err
	}
	history, _, err := c.store.GetFitnessHistory(ctx, run.ID)
	if err != nil {
		return "", err
	}
	diagnostics, _, err := c.store.GetGenerationDiagnostics(ctx, run.ID)
	if err != nil {
		return "", err
	}
	out, err := stats.WriteRunArtifacts(dir, stats.RunArtifacts{
		Run:              run,
		BestByGeneration: history,
		Diagnostics:      diagnostics,
	})
	if err != nil {
		return "", fmt.Errorf("export run %s: %w", run.ID, err)
	}
	return filepath.Clean(out), nil
}

func (c *Client) lookupRun(ctx context.Context, runID string) (model.RunRecord, error) {
	if runID == "" || runID == LatestRun {
		runs, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return model.RunRecord{}, err
		}
		if len(runs) == 0 {
			return model.RunRecord{}, errors.New("no runs available")
		}
		return runs[0], nil
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (c *Client) run(ctx context.Context, settings config.Settings, cfg evo.Config, stream *random.Stream, every int, extra evo.Observer) (RunSummary, error) {
	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	rt, err := evo.NewRuntime(cfg, stream, logger)
	if err != nil {
		return RunSummary{}, err
	}

	recorder := &evo.Recorder{Every: every}
	observers := []evo.Observer{recorder}
	if c.metrics != nil {
		observers = append(observers, c.metrics)
	}
	if extra != nil {
		observers = append(observers, extra)
	}

	createdAt := c.now().UTC()
	result, err := evo.NewDriver(rt, evo.WithObserver(evo.Observers(observers...))).Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAt:       createdAt,
		Seed:            stream.CurrentSeed(),
		Seeded:          stream.Seeded(),
		Settings:        runSettings(settings),
		State:           result.State.String(),
		Generations:     result.Generations,
		ElapsedMS:       result.Elapsed.Milliseconds(),
		Injections:      result.Injections,
		Restarts:        result.Restarts,
		First:           individualRecord(result.First),
		Final:           individualRecord(result.Final),
	}
	// interrupted runs are stored too
	saveCtx := context.WithoutCancel(ctx)
	if err := c.store.SaveRun(saveCtx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveFitnessHistory(saveCtx, runID, result.BestHistory); err != nil {
		return RunSummary{}, fmt.Errorf("save fitness history: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(saveCtx, runID, diagnostics(recorder.Reports())); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics: %w", err)
	}
	return RunSummary{RunRecord: record, BestByGeneration: result.BestHistory}, nil
}

func newStream(s config.Settings) *random.Stream {
	if s.RandomSeed != nil {
		return random.NewStream(*s.RandomSeed)
	}
	return random.NewClockStream()
}

func runSettings(s config.Settings) model.RunSettings {
	return model.RunSettings{
		PopulationSize:       s.PopulationSize,
		TournamentSize:       s.TournamentSize,
		MaxGenerations:       s.MaxGenerations,
		InitialHeight:        s.InitialHeight,
		MaxCrossoverHeight:   s.MaxCrossoverHeight,
		MaxMutationHeight:    s.MaxMutationHeight,
		CrossoverProbability: s.CrossoverProbability,
		MutationProbability:  s.MutationProbability,
		FitnessMarginOfError: s.FitnessMarginOfError,
		GenerationMethod:     s.GenerationMethod,
		ReproductionMethod:   s.ReproductionMethod,
		Operators:            append([]string(nil), s.Operators...),
		Operands:             append([]string(nil), s.Operands...),
		TrainingInputs:       append([]float64(nil), s.TrainingInputs...),
		TargetFunction:       s.TargetFunction,
		TimeBudgetMS:         s.TimeBudget.Milliseconds(),
		RestartThreshold:     s.RestartThreshold,
		InjectionRatio:       s.InjectionRatio,
	}
}

func individualRecord(s evo.IndividualSummary) model.IndividualRecord {
	return model.IndividualRecord{
		Fitness:      finiteFitness(s),
		FitnessState: s.Fitness.State().String(),
		Height:       s.Height,
		Valid:        s.Valid,
		Expression:   s.Expression,
	}
}

func finiteFitness(s evo.IndividualSummary) float64 {
	if !s.Fitness.IsValid() {
		return math.MaxFloat64
	}
	return s.Fitness.Value()
}

func diagnostics(reports []evo.GenerationReport) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, 0, len(reports))
	for _, r := range reports {
		out = append(out, model.GenerationDiagnostics{
			Generation:     r.Generation,
			Step:           r.Step.String(),
			BestFitness:    finiteFitness(r.Best),
			BestHeight:     r.Best.Height,
			BestValid:      r.Best.Valid,
			MedianFitness:  r.MedianFitness,
			InvalidCount:   r.InvalidCount,
			PopulationSize: r.PopulationSize,
			DuplicateCount: r.DuplicateCount,
			InjectCount:    r.InjectCount,
			DurationMS:     float64(r.Duration.Microseconds()) / 1000,
		})
	}
	return out
}
