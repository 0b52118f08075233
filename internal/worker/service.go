package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"miim/internal/services"
)

// Pipeline runs one orchestrator pass
type Pipeline interface {
	Run(ctx context.Context, opts services.RunOptions) (*services.PipelineStats, error)
}

// QualityRunner runs one QA sweep
type QualityRunner interface {
	Run(ctx context.Context) (*services.QualitySummary, error)
}

// Config controls what each cycle does
type Config struct {
	Interval time.Duration
	Scrape   bool
	Limit    int
}

// Status is the JSON view of the runner
type Status struct {
	Running      bool                     `json:"running"`
	Interval     string                   `json:"interval"`
	Cycles       int                      `json:"cycles"`
	StartedAt    *time.Time               `json:"started_at,omitempty"`
	LastRunAt    *time.Time               `json:"last_run_at,omitempty"`
	LastPipeline *services.PipelineStats  `json:"last_pipeline,omitempty"`
	LastQuality  *services.QualitySummary `json:"last_quality,omitempty"`
	LastError    string                   `json:"last_error,omitempty"`
}

// WorkerService runs the extraction batch and a dry-run QA sweep on a ticker.
// Cycles never overlap: one goroutine runs them back to back.
type WorkerService struct {
	pipeline   Pipeline
	newQuality func() QualityRunner
	config     Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
	status  Status
}

// NewWorkerService creates a stopped runner; newQuality builds a fresh sweep per cycle
func NewWorkerService(pipeline Pipeline, newQuality func() QualityRunner, config Config) *WorkerService {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &WorkerService{
		pipeline:   pipeline,
		newQuality: newQuality,
		config:     config,
		status:     Status{Interval: config.Interval.String()},
	}
}

// Start launches the cycle loop; the first cycle runs immediately
func (ws *WorkerService) Start(parent context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	log.Printf("🔄 Starting background runner (every %s)", ws.config.Interval)
	ws.ctx, ws.cancel = context.WithCancel(parent)
	now := time.Now().UTC()
	ws.status.StartedAt = &now
	ws.running = true
	ws.status.Running = true

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.loop(ws.ctx)
	}()
	return nil
}

// Stop cancels the loop and waits for the current cycle to end
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	if !ws.running {
		ws.mu.Unlock()
		return
	}
	log.Println("Stopping background runner...")
	ws.cancel()
	ws.mu.Unlock()

	ws.wg.Wait()

	ws.mu.Lock()
	ws.running = false
	ws.status.Running = false
	ws.mu.Unlock()
	log.Println("✅ Background runner stopped")
}

// IsRunning returns whether the loop is active
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// GetStatus returns a snapshot of the runner state
func (ws *WorkerService) GetStatus() Status {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.status
}

func (ws *WorkerService) loop(ctx context.Context) {
	ticker := time.NewTicker(ws.config.Interval)
	defer ticker.Stop()

	ws.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Background runner stopping due to context cancellation")
			return
		case <-ticker.C:
			ws.RunOnce(ctx)
		}
	}
}

// RunOnce runs one cycle: pipeline batch, then the QA dry run
func (ws *WorkerService) RunOnce(ctx context.Context) {
	var errs []error

	stats, err := ws.pipeline.Run(ctx, services.RunOptions{
		Scrape:  ws.config.Scrape,
		Extract: true,
		Limit:   ws.config.Limit,
	})
	if err != nil {
		log.Printf("❌ Pipeline cycle failed: %v", err)
		errs = append(errs, err)
	}

	var summary *services.QualitySummary
	if ctx.Err() == nil && ws.newQuality != nil {
		summary, err = ws.newQuality().Run(ctx)
		if err != nil {
			log.Printf("❌ QA sweep failed: %v", err)
			errs = append(errs, err)
		}
	}

	now := time.Now().UTC()
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.status.Cycles++
	ws.status.LastRunAt = &now
	if stats != nil {
		ws.status.LastPipeline = stats
	}
	if summary != nil {
		ws.status.LastQuality = summary
	}
	ws.status.LastError = ""
	if err := errors.Join(errs...); err != nil {
		ws.status.LastError = err.Error()
	}
}
