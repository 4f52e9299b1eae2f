// Package pipeline orchestrates one ingestion run: dispatcher -> emitters.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/google/uuid"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/emitter"
	"github.com/GabrielNunesIT/flowbase/internal/ingestor"
	"github.com/GabrielNunesIT/flowbase/internal/objectstore"
)

const shutdownTimeout = 5 * time.Second

// ErrNoEmitters is returned when the configuration enables no destination.
var ErrNoEmitters = errors.New("no emitters enabled")

// StoreFactory builds the object store for the s3 source.
type StoreFactory func(ctx context.Context, cfg config.ObjectStoreConfig) (objectstore.Store, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStoreFactory replaces objectstore.New.
func WithStoreFactory(f StoreFactory) Option {
	return func(p *Pipeline) {
		p.newStore = f
	}
}

// WithDispatcherOptions passes extra options to every dispatcher the
// pipeline builds.
func WithDispatcherOptions(opts ...ingestor.Option) Option {
	return func(p *Pipeline) {
		p.dispatcherOpts = append(p.dispatcherOpts, opts...)
	}
}

// WithEmitter adds an emitter that is not driven by configuration.
func WithEmitter(e emitter.Emitter) Option {
	return func(p *Pipeline) {
		p.extra = append(p.extra, e)
	}
}

// Report summarizes one run.
type Report struct {
	RunID    string
	Source   config.SourceType
	Mode     config.Mode
	Rows     int
	Columns  []string
	Kind     ingestor.ErrorKind
	Duration time.Duration
}

// Pipeline wires the dispatcher to the configured emitters.
type Pipeline struct {
	cfg    *config.Config
	logger logger.ILogger
	mu     sync.RWMutex

	source     config.SourceType
	mode       config.Mode
	dispatcher *ingestor.Dispatcher
	emitters   map[string]emitter.Emitter
	extra      []emitter.Emitter
	started    bool

	newStore       StoreFactory
	dispatcherOpts []ingestor.Option
}

// New creates a pipeline from configuration. The object store is only built
// when the configured source is s3 and enabled.
func New(ctx context.Context, cfg *config.Config, log logger.ILogger, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		logger:   log.SubLogger("Pipeline"),
		emitters: make(map[string]emitter.Emitter),
		newStore: objectstore.New,
	}
	for _, opt := range opts {
		opt(p)
	}

	r, err := p.buildRoute(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building dispatcher: %w", err)
	}
	p.source, p.mode, p.dispatcher = r.source, r.mode, r.dispatcher

	if err := p.buildEmitters(cfg); err != nil {
		return nil, fmt.Errorf("building emitters: %w", err)
	}

	return p, nil
}

// route is the dispatcher together with the source and mode it serves.
type route struct {
	source     config.SourceType
	mode       config.Mode
	dispatcher *ingestor.Dispatcher
}

// buildRoute resolves source and mode and creates the dispatcher.
// An unrecognized source tag is kept as-is so the dispatcher rejects it.
func (p *Pipeline) buildRoute(ctx context.Context, cfg *config.Config) (route, error) {
	mode, err := config.ParseMode(cfg.Ingestion.Mode)
	if err != nil {
		return route{}, err
	}

	source, err := config.ParseSourceType(cfg.Ingestion.Source)
	if err != nil {
		p.logger.Warningf("%v", err)
		source = config.SourceType(strings.TrimSpace(cfg.Ingestion.Source))
	}

	opts := slices.Clone(p.dispatcherOpts)
	if source == config.SourceS3 && cfg.Ingestion.Enabled {
		store, err := p.newStore(ctx, cfg.ObjectStore)
		if err != nil {
			return route{}, fmt.Errorf("creating object store: %w", err)
		}
		opts = append([]ingestor.Option{ingestor.WithObjectStore(store)}, opts...)
	}

	p.logger.Debugf("dispatcher ready: source=%s mode=%s", source, mode)
	return route{source: source, mode: mode, dispatcher: ingestor.New(p.logger, opts...)}, nil
}

func configuredEmitters(cfg *config.Config) map[string]bool {
	return map[string]bool{
		"stdout": cfg.Emitters.Stdout.Enabled,
		"file":   cfg.Emitters.File.Enabled,
		"http":   cfg.Emitters.HTTP.Enabled,
	}
}

func (p *Pipeline) newEmitter(name string, cfg *config.Config) (emitter.Emitter, error) {
	switch name {
	case "stdout":
		return emitter.NewStdoutEmitter(cfg.Emitters.Stdout, p.logger), nil
	case "file":
		return emitter.NewFileEmitter(cfg.Emitters.File), nil
	case "http":
		return emitter.NewHTTPEmitter(cfg.Emitters.HTTP, p.logger), nil
	default:
		return nil, fmt.Errorf("unknown emitter: %s", name)
	}
}

// buildEmitters creates enabled emitters.
func (p *Pipeline) buildEmitters(cfg *config.Config) error {
	for name, enabled := range configuredEmitters(cfg) {
		if !enabled {
			continue
		}
		em, err := p.newEmitter(name, cfg)
		if err != nil {
			return err
		}
		p.emitters[name] = em
	}

	if len(p.emitters) == 0 && len(p.extra) == 0 {
		return ErrNoEmitters
	}

	p.logger.Debugf("built %d emitters", len(p.emitters)+len(p.extra))
	return nil
}

// Start starts every emitter.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, em := range p.allEmittersLocked() {
		if err := em.Start(ctx); err != nil {
			return fmt.Errorf("starting emitter %s: %w", em.Name(), err)
		}
		p.logger.Debugf("started emitter: %s", em.Name())
	}
	p.started = true
	return nil
}

// Stop stops every emitter. Stop errors are logged, not returned.
func (p *Pipeline) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, em := range p.allEmittersLocked() {
		if err := em.Stop(ctx); err != nil {
			p.logger.Warningf("emitter stop error: name=%s, error=%v", em.Name(), err)
		}
	}
	p.started = false
	p.logger.Debug("all emitters stopped")
}

// RunOnce performs one ingestion and hands the table to every emitter.
//
// In compat mode contained failures produce an empty table and no error.
// In strict mode every failure is returned and Report.Kind names it.
// Emitter failures are joined and returned after all emitters ran.
func (p *Pipeline) RunOnce(ctx context.Context) (report Report, err error) {
	p.mu.RLock()
	cfg := p.cfg.Ingestion
	source, mode, d := p.source, p.mode, p.dispatcher
	emitters := p.allEmittersLocked()
	p.mu.RUnlock()

	report = Report{
		RunID:  uuid.NewString(),
		Source: source,
		Mode:   mode,
		Kind:   ingestor.KindNone,
	}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	p.logger.Infof("ingestion started: run_id=%s source=%s mode=%s", report.RunID, source, mode)

	var batch emitter.Batch
	batch.RunID = report.RunID
	batch.Source = source

	switch mode {
	case config.ModeStrict:
		res := d.Run(ctx, cfg, source)
		if res.Failed() {
			report.Kind = res.Kind
			p.logger.Warningf("ingestion failed: run_id=%s kind=%s error=%v", report.RunID, res.Kind, res.Err)
			return report, res.Err
		}
		batch.Table = res.Table
	default:
		tbl, ierr := d.Ingest(ctx, cfg, source)
		if ierr != nil {
			report.Kind = ingestor.KindOf(ierr)
			p.logger.Warningf("ingestion failed: run_id=%s error=%v", report.RunID, ierr)
			return report, ierr
		}
		batch.Table = tbl
	}
	batch.IngestedAt = time.Now().UTC()

	report.Rows = batch.Table.Len()
	report.Columns = batch.Table.Columns
	p.logger.Infof("ingestion finished: run_id=%s rows=%d columns=%d", report.RunID, report.Rows, len(report.Columns))

	return report, p.emitToAll(ctx, emitters, &batch)
}

// emitToAll sends the batch to all emitters concurrently.
func (p *Pipeline) emitToAll(ctx context.Context, emitters []emitter.Emitter, batch *emitter.Batch) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, e := range emitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Emit(ctx, batch); err != nil {
				p.logger.Warningf("emit error: emitter=%s, run_id=%s, error=%v", e.Name(), batch.RunID, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("emitter %s: %w", e.Name(), err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Reconfigure applies a new configuration: the dispatcher is rebuilt and
// emitters are added or removed as needed. Nothing changes unless the new
// dispatcher and every new emitter are ready.
func (p *Pipeline) Reconfigure(ctx context.Context, newCfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.buildRoute(ctx, newCfg)
	if err != nil {
		return fmt.Errorf("reconfiguring dispatcher: %w", err)
	}

	added, removed, err := p.prepareEmitters(ctx, p.cfg, newCfg)
	if err != nil {
		return fmt.Errorf("reconfiguring emitters: %w", err)
	}

	for _, name := range removed {
		p.removeEmitter(name)
	}
	for name, em := range added {
		p.emitters[name] = em
		p.logger.Infof("emitter added: %s", name)
	}
	p.source, p.mode, p.dispatcher = r.source, r.mode, r.dispatcher
	p.cfg = newCfg

	p.logger.Infof("configuration applied: source=%s mode=%s emitters=%d",
		p.source, p.mode, len(p.emitters)+len(p.extra))
	return nil
}

// prepareEmitters builds and starts the emitters newCfg adds or changes and
// lists the ones to remove. On error every emitter it started is stopped
// again and the pipeline is untouched.
func (p *Pipeline) prepareEmitters(ctx context.Context, oldCfg, newCfg *config.Config) (map[string]emitter.Emitter, []string, error) {
	oldEnabled := configuredEmitters(oldCfg)
	newEnabled := configuredEmitters(newCfg)

	added := make(map[string]emitter.Emitter)
	var removed []string

	for _, name := range slices.Sorted(maps.Keys(newEnabled)) {
		was, now := oldEnabled[name], newEnabled[name]
		changed := was && now && emitterChanged(name, oldCfg, newCfg)

		if was && (!now || changed) {
			removed = append(removed, name)
		}
		if now && (!was || changed) {
			em, err := p.startEmitter(ctx, name, newCfg)
			if err != nil {
				p.stopEmitters(added)
				return nil, nil, err
			}
			added[name] = em
		}
	}
	return added, removed, nil
}

func emitterChanged(name string, oldCfg, newCfg *config.Config) bool {
	switch name {
	case "stdout":
		return oldCfg.Emitters.Stdout != newCfg.Emitters.Stdout
	case "file":
		return oldCfg.Emitters.File != newCfg.Emitters.File
	case "http":
		return oldCfg.Emitters.HTTP != newCfg.Emitters.HTTP
	default:
		return false
	}
}

// startEmitter builds an emitter and starts it if the pipeline is running.
func (p *Pipeline) startEmitter(ctx context.Context, name string, cfg *config.Config) (emitter.Emitter, error) {
	em, err := p.newEmitter(name, cfg)
	if err != nil {
		return nil, err
	}

	if p.started {
		if err := em.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting emitter %s: %w", name, err)
		}
	}
	return em, nil
}

// stopEmitters stops emitters that were never committed.
func (p *Pipeline) stopEmitters(ems map[string]emitter.Emitter) {
	if !p.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for name, em := range ems {
		if err := em.Stop(ctx); err != nil {
			p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
		}
	}
}

// removeEmitter stops and removes an emitter (caller holds the lock).
func (p *Pipeline) removeEmitter(name string) {
	em, ok := p.emitters[name]
	if !ok {
		return
	}

	if p.started {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := em.Stop(ctx); err != nil {
			p.logger.Warningf("emitter stop error: name=%s, error=%v", name, err)
		}
	}

	delete(p.emitters, name)
	p.logger.Infof("emitter removed: %s", name)
}

// allEmittersLocked returns configured emitters in name order, then the
// extra ones.
func (p *Pipeline) allEmittersLocked() []emitter.Emitter {
	out := make([]emitter.Emitter, 0, len(p.emitters)+len(p.extra))
	for _, name := range slices.Sorted(maps.Keys(p.emitters)) {
		out = append(out, p.emitters[name])
	}
	return append(out, p.extra...)
}

// Source returns the source tag the pipeline ingests from.
func (p *Pipeline) Source() config.SourceType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// EmitterCount returns the number of active emitters.
func (p *Pipeline) EmitterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emitters) + len(p.extra)
}
