package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/session"
	"github.com/2beens/posecoach/internal/telemetry/metrics"
	"github.com/2beens/posecoach/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrSessionNotFound = errors.New("session not found")

type RegistryParams struct {
	Catalog       *protocol.Catalog
	Metrics       *metrics.Manager
	Overlays      *OverlayCache
	TickInterval  time.Duration
	VerdictMaxAge time.Duration
	// NewTicks overrides the wall-clock ticker of new sessions.
	NewTicks func() session.TickSource
}

// Registry owns the running sessions. Each session gets a runner and a drain
// goroutine moving its frame results into the overlay cache. The drain clears
// the session's overlay once the runner is closed and its results are consumed.
type Registry struct {
	ctx        context.Context
	catalog    *protocol.Catalog
	classifier *pose.Classifier
	metrics    *metrics.Manager
	overlays   *OverlayCache
	params     RegistryParams

	mu      sync.RWMutex
	runners map[string]*session.Runner
	drained map[string]chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewRegistry(ctx context.Context, params RegistryParams) *Registry {
	if params.Catalog == nil {
		params.Catalog = protocol.NewCatalog()
	}
	if params.Overlays == nil {
		params.Overlays = NewOverlayCache(0, 3*time.Second)
	}
	return &Registry{
		ctx:        ctx,
		catalog:    params.Catalog,
		classifier: pose.NewClassifier(params.Metrics),
		metrics:    params.Metrics,
		overlays:   params.Overlays,
		params:     params,
		runners:    make(map[string]*session.Runner),
		drained:    make(map[string]chan struct{}),
	}
}

func (r *Registry) Protocols() []protocol.Protocol {
	return r.catalog.List()
}

func (r *Registry) Create(ctx context.Context, protocolName string) (_ session.State, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "registry.session.create")
	span.SetAttributes(attribute.String("session.protocol", protocolName))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	p, err := r.catalog.Get(protocolName)
	if err != nil {
		return session.State{}, err
	}

	id := uuid.NewString()
	params := session.RunnerParams{
		ID:            id,
		Protocol:      p,
		Classifier:    r.classifier,
		Metrics:       r.metrics,
		TickInterval:  r.params.TickInterval,
		VerdictMaxAge: r.params.VerdictMaxAge,
	}
	if r.params.NewTicks != nil {
		params.Ticks = r.params.NewTicks()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return session.State{}, session.ErrRunnerClosed
	}

	runner := session.NewRunner(r.ctx, params)
	drained := make(chan struct{})
	r.runners[id] = runner
	r.drained[id] = drained
	r.wg.Add(1)
	go r.drain(runner, drained)

	r.metrics.GaugeActiveSessions.Inc()
	span.SetAttributes(attribute.String("session.id", id))
	log.Infof("session [%s] created: %s", id, p.Name)

	return runner.Snapshot(), nil
}

func (r *Registry) Get(id string) (*session.Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runner, ok := r.runners[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return runner, nil
}

func (r *Registry) State(ctx context.Context, id string) (session.State, error) {
	runner, err := r.Get(id)
	if err != nil {
		return session.State{}, err
	}
	return runner.State(ctx)
}

func (r *Registry) Submit(_ context.Context, id string, detection pose.Detection) error {
	runner, err := r.Get(id)
	if err != nil {
		return err
	}
	return runner.Submit(detection)
}

func (r *Registry) Do(ctx context.Context, id string, cmd session.Command) (session.State, error) {
	runner, err := r.Get(id)
	if err != nil {
		return session.State{}, err
	}
	return runner.Do(ctx, cmd)
}

func (r *Registry) Overlay(_ context.Context, id string) (Overlay, error) {
	if _, err := r.Get(id); err != nil {
		return Overlay{}, err
	}
	return r.overlays.Get(id)
}

func (r *Registry) Delete(ctx context.Context, id string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "registry.session.delete")
	span.SetAttributes(attribute.String("session.id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	r.mu.Lock()
	runner, ok := r.runners[id]
	drained := r.drained[id]
	delete(r.runners, id)
	delete(r.drained, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	runner.Close()
	<-drained
	r.metrics.GaugeActiveSessions.Dec()
	log.Infof("session [%s] deleted", id)

	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// Close stops every session and waits for their goroutines.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	runners := r.runners
	r.runners = make(map[string]*session.Runner)
	r.drained = make(map[string]chan struct{})
	r.mu.Unlock()

	for _, runner := range runners {
		runner.Close()
		r.metrics.GaugeActiveSessions.Dec()
	}
	r.wg.Wait()
	log.Debugf("session registry closed, %d sessions stopped", len(runners))
}

// drain runs until the runner is closed and its output channels are drained.
func (r *Registry) drain(runner *session.Runner, drained chan<- struct{}) {
	defer r.wg.Done()
	defer close(drained)
	defer r.overlays.Delete(runner.ID())

	results := runner.Results()
	updates := runner.Updates()
	for results != nil || updates != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if err := r.overlays.Put(res); err != nil {
				log.Errorf("session [%s] store overlay: %s", runner.ID(), err)
			}
		case st, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if st.Transition != session.TransitionTick {
				log.Tracef("session [%s] -> %s (%s)", st.SessionID, st.Status, st.Transition)
			}
		}
	}
}
