package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/paths"
	"loopbuilder/internal/pipeline"
)

// EngineFactory builds the media engine for one job run. Tests inject a fake.
type EngineFactory func(log zerolog.Logger, tempDir string) (*engine.Engine, error)

// Manager owns job lifecycles: per-job working directories, background
// pipeline runs and cancellation.
type Manager struct {
	store     *JobStore
	dataDir   string
	log       zerolog.Logger
	newEngine EngineFactory

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a manager storing job workspaces under dataDir/runs.
func NewManager(store *JobStore, dataDir string, log zerolog.Logger, factory EngineFactory) *Manager {
	if factory == nil {
		factory = func(log zerolog.Logger, tempDir string) (*engine.Engine, error) {
			return engine.New(log, tempDir, nil)
		}
	}
	return &Manager{
		store:     store,
		dataDir:   dataDir,
		log:       log,
		newEngine: factory,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// JobDir returns the workspace root for a job.
func (m *Manager) JobDir(id string) string {
	return filepath.Join(m.dataDir, "runs", id)
}

// CreateJob allocates a job id, its workspace directories and the database
// row. Media is uploaded into the workspace before the job starts.
func (m *Manager) CreateJob() (Job, error) {
	job := Job{
		ID:        uuid.NewString(),
		State:     StateQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	root := m.JobDir(job.ID)
	for _, sub := range []string{"videos", "music", "sounds", "quotes"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return Job{}, fmt.Errorf("create job workspace: %w", err)
		}
	}

	if err := m.store.Create(job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Get returns the current state of a job.
func (m *Manager) Get(id string) (Job, error) {
	return m.store.Get(id)
}

// List returns all known jobs.
func (m *Manager) List() ([]Job, error) {
	return m.store.List()
}

// Start launches the build pipeline for a queued job in the background.
func (m *Manager) Start(id string, cfg config.Config) error {
	job, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if job.State != StateQueued {
		return fmt.Errorf("job %s is %s, only queued jobs can start", id, job.State)
	}

	rp, err := paths.Resolve(m.JobDir(id))
	if err != nil {
		return err
	}
	rp = paths.ApplyConfig(rp, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[id] = cancel
	m.mu.Unlock()

	if err := m.store.SetState(id, StateRunning, ""); err != nil {
		cancel()
		return err
	}

	jobLog := m.log.With().Str("job", id).Logger()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.cancels, id)
			m.mu.Unlock()
		}()
		m.run(ctx, id, cfg, rp, jobLog)
	}()
	return nil
}

func (m *Manager) run(ctx context.Context, id string, cfg config.Config, rp paths.RunPaths, log zerolog.Logger) {
	eng, err := m.newEngine(log, rp.TempDir)
	if err != nil {
		m.fail(ctx, id, err, log)
		return
	}

	p := pipeline.New(cfg, rp, eng, log)
	p.OnProgress(func(stage string) {
		if err := m.store.SetStage(id, stage); err != nil {
			log.Warn().Err(err).Msg("stage update failed")
		}
	})

	result, err := p.Run(ctx)
	if err != nil {
		m.fail(ctx, id, err, log)
		return
	}

	if err := m.store.SetOutput(id, result.Output); err != nil {
		log.Error().Err(err).Msg("output update failed")
	}
	if err := m.store.SetState(id, StateDone, ""); err != nil {
		log.Error().Err(err).Msg("state update failed")
	}
	log.Info().Str("output", result.Output).Msg("job finished")
}

func (m *Manager) fail(ctx context.Context, id string, err error, log zerolog.Logger) {
	state := StateFailed
	if ctx.Err() == context.Canceled {
		state = StateCanceled
	}
	if storeErr := m.store.SetState(id, state, err.Error()); storeErr != nil {
		log.Error().Err(storeErr).Msg("state update failed")
	}
	log.Error().Err(err).Str("state", string(state)).Msg("job did not finish")
}

// Cancel stops a running job. Canceling a job that is not running is an
// error.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not running", id)
	}
	cancel()
	return nil
}

// Wait blocks until all background jobs have finished. Used on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
