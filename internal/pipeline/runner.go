// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mia-platform/unisync/internal/connector"
	"github.com/mia-platform/unisync/internal/events"
	"github.com/mia-platform/unisync/internal/link"
	"github.com/mia-platform/unisync/internal/lock"
	"github.com/mia-platform/unisync/internal/logger"
	"github.com/mia-platform/unisync/internal/metrics"
	"github.com/mia-platform/unisync/internal/operation"
	"github.com/mia-platform/unisync/internal/store"
	"github.com/mia-platform/unisync/internal/syncerr"
	"github.com/mia-platform/unisync/internal/tracing"
)

const (
	loggerName = "unisync:pipeline"
)

var ErrInvalidRunner = errors.New("invalid runner options")

// Options tune a single run.
type Options struct {
	// FullResync ignores the persisted states: the source restarts from scratch and the
	// destination receives every record again.
	FullResync bool
}

// RunnerOptions are the collaborators of a Runner.
type RunnerOptions struct {
	Store      store.Store
	Connectors *connector.Registry
	Links      *link.Registry
	// Emitter receives the run events; nil disables them.
	Emitter events.Emitter
	// Locker guards the pipelines against concurrent runs; a process local Locker is
	// used when nil.
	Locker lock.Locker
	// Provisioner wires updated connections to the default destination of their org;
	// nil disables the provisioning.
	Provisioner *Provisioner
	Now         func() time.Time
}

// Runner executes pipeline runs.
type Runner struct {
	store       store.Store
	connectors  *connector.Registry
	links       *link.Registry
	emitter     events.Emitter
	locker      lock.Locker
	provisioner *Provisioner
	now         func() time.Time
}

func NewRunner(opts RunnerOptions) (*Runner, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("%w: missing store", ErrInvalidRunner)
	case opts.Connectors == nil:
		return nil, fmt.Errorf("%w: missing connector registry", ErrInvalidRunner)
	case opts.Links == nil:
		return nil, fmt.Errorf("%w: missing link registry", ErrInvalidRunner)
	}

	locker := opts.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		store:       opts.Store,
		connectors:  opts.Connectors,
		links:       opts.Links,
		emitter:     opts.Emitter,
		locker:      locker,
		provisioner: opts.Provisioner,
		now:         now,
	}, nil
}

// Sync runs the pipeline once and returns the terminal record of the run. A run that
// fails returns both its record and a *RunError; ErrSyncInProgress is returned without
// any record when the pipeline is already syncing.
func (r *Runner) Sync(ctx context.Context, pipelineID string, opts Options) (store.Run, error) {
	log := logger.Named(ctx, loggerName).With("pipelineId", pipelineID)

	held, err := r.locker.Acquire(ctx, pipelineID)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return store.Run{}, fmt.Errorf("%w: %s", ErrSyncInProgress, pipelineID)
		}
		return store.Run{}, fmt.Errorf("locking pipeline %s: %w", pipelineID, err)
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release pipeline lock", "error", err.Error())
		}
	}()

	pipeline, err := r.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return store.Run{}, err
	}

	ctx, span := tracing.Start(ctx, "pipeline.sync",
		attribute.String("pipeline.id", pipelineID),
		attribute.Bool("pipeline.full_resync", opts.FullResync),
	)

	exec := &execution{
		runner:   r,
		pipeline: pipeline,
		opts:     opts,
		log:      log,
		span:     span,
		phase:    PhaseIdle,
	}
	if err := exec.start(ctx); err != nil {
		tracing.End(span, err)
		return store.Run{}, err
	}

	runErr := exec.execute(ctx)
	run, err := exec.finish(ctx, runErr)
	tracing.End(span, runErr)
	return run, err
}

// HandleConnectionUpdate reacts to a change of a connection: it provisions the default
// pipeline of the connection, when enabled, and syncs every pipeline reading from it
// when triggerDefaultSync is set.
func (r *Runner) HandleConnectionUpdate(ctx context.Context, connectionID string, triggerDefaultSync bool) ([]store.Run, error) {
	log := logger.Named(ctx, loggerName)

	if r.provisioner != nil {
		if _, _, err := r.provisioner.EnsureDefaultPipeline(ctx, connectionID); err != nil {
			return nil, err
		}
	}
	if !triggerDefaultSync {
		return nil, nil
	}

	pipelines, err := r.store.ListPipelinesBySource(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	log.Debug("syncing connection pipelines", "connectionId", connectionID, "pipelines", len(pipelines))

	runs := make([]store.Run, 0, len(pipelines))
	var errs error
	for _, pipeline := range pipelines {
		run, err := r.Sync(ctx, pipeline.ID, Options{})
		if run.ID != "" {
			runs = append(runs, run)
		}
		errs = errors.Join(errs, err)
	}
	return runs, errs
}

// execution holds the state of one run. The fields written by the stream stages are read
// only after the stream has ended.
type execution struct {
	runner   *Runner
	pipeline store.Pipeline
	opts     Options
	log      logger.Logger
	span     trace.Span

	phase     Phase
	run       store.Run
	startedAt time.Time

	sourceConnection      store.Connection
	destinationConnection store.Connection

	// owned by the tracking link
	counters store.RunMetrics

	// owned by the sink
	committed            bool
	committedSource      json.RawMessage
	committedDestination json.RawMessage
}

func (e *execution) transition(next Phase) error {
	if !e.phase.CanTransition(next) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, e.phase, next)
	}

	e.log.Debug("run phase changed", "from", e.phase.String(), "to", next.String())
	e.span.AddEvent(next.String())
	e.phase = next
	return nil
}

func (e *execution) start(ctx context.Context) error {
	e.startedAt = e.runner.now().UTC()
	run, err := e.runner.store.CreateRun(ctx, store.Run{
		PipelineID:    e.pipeline.ID,
		SourceID:      e.pipeline.SourceID,
		DestinationID: e.pipeline.DestinationID,
		Status:        store.RunStatusRunning,
		StartedAt:     e.startedAt,
	})
	if err != nil {
		return fmt.Errorf("creating run of pipeline %s: %w", e.pipeline.ID, err)
	}

	e.run = run
	e.log = e.log.With("runId", run.ID)
	e.span.SetAttributes(attribute.String("run.id", run.ID))
	metrics.RunsInFlight.Inc()

	startedAt := e.startedAt
	if _, err := e.runner.store.PatchPipeline(ctx, e.pipeline.ID, store.PipelinePatch{LastSyncStartedAt: &startedAt}); err != nil {
		e.log.Warn("failed to record sync start", "error", err.Error())
	}

	e.log.Info("sync started", "fullResync", e.opts.FullResync)
	return nil
}

func (e *execution) execute(ctx context.Context) error {
	if err := e.transition(PhaseSourcing); err != nil {
		return err
	}

	source, destination, links, err := e.resolve(ctx)
	if err != nil {
		return err
	}

	instances := make([]any, 0, 2)
	defer func() {
		e.closeInstances(ctx, instances)
	}()

	sourceInstance, err := connector.NewInstance(ctx, source, e.sourceConnection, e.settingsChanged(e.sourceConnection.ID))
	if err != nil {
		return fmt.Errorf("building %s instance: %w", source.Name(), err)
	}
	instances = append(instances, sourceInstance)

	destinationInstance, err := connector.NewInstance(ctx, destination, e.destinationConnection, e.settingsChanged(e.destinationConnection.ID))
	if err != nil {
		return fmt.Errorf("building %s instance: %w", destination.Name(), err)
	}
	instances = append(instances, destinationInstance)

	sourceState, destinationState := e.pipeline.SourceState, e.pipeline.DestinationState
	if e.opts.FullResync {
		sourceState, destinationState = nil, nil
	}

	destinationLink, err := destination.DestinationSync(ctx, connector.DestinationRequest{
		Connection: e.destinationConnection,
		Instance:   destinationInstance,
		State:      destinationState,
		FullResync: e.opts.FullResync,
	})
	if err != nil {
		return fmt.Errorf("starting %s destination: %w", destination.Name(), err)
	}

	if err := e.transition(PhaseLinking); err != nil {
		return err
	}

	request := connector.SourceRequest{
		Connection: e.sourceConnection,
		Instance:   sourceInstance,
		State:      sourceState,
		Streams:    e.pipeline.Streams,
		FullResync: e.opts.FullResync,
	}
	produce := func(ctx context.Context, out chan<- operation.Operation) error {
		return source.SourceSync(ctx, request, out)
	}

	chain := make([]link.Link, 0, len(links)+2)
	chain = append(chain, e.track(sourceState))
	chain = append(chain, links...)
	chain = append(chain, destinationLink)
	if err := link.Run(ctx, produce, link.Chain(chain...), e.observe); err != nil {
		return err
	}

	if err := e.transition(PhaseDestinationCommitting); err != nil {
		return err
	}

	// closing the instances releases the clients still holding data, a failure here
	// fails the run before its state is persisted
	closing := instances
	instances = nil
	var closeErr error
	for _, instance := range closing {
		closeErr = errors.Join(closeErr, connector.CloseInstance(ctx, instance))
	}
	if closeErr != nil {
		return fmt.Errorf("closing connector instances: %w", closeErr)
	}

	if err := e.persistState(ctx, true); err != nil {
		return err
	}
	return e.transition(PhaseStatePersisted)
}

func (e *execution) resolve(ctx context.Context) (connector.Source, connector.Destination, []link.Link, error) {
	var err error
	if e.sourceConnection, err = e.connection(ctx, e.pipeline.SourceID); err != nil {
		return nil, nil, nil, err
	}
	if e.destinationConnection, err = e.connection(ctx, e.pipeline.DestinationID); err != nil {
		return nil, nil, nil, err
	}

	source, err := e.runner.connectors.Source(e.sourceConnection.ConnectorName)
	if err != nil {
		return nil, nil, nil, err
	}
	destination, err := e.runner.connectors.Destination(e.destinationConnection.ConnectorName)
	if err != nil {
		return nil, nil, nil, err
	}

	links, err := e.runner.links.Resolve(e.pipeline.Links)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving links of pipeline %s: %w", e.pipeline.ID, err)
	}

	e.span.SetAttributes(
		attribute.String("source.connector", source.Name()),
		attribute.String("destination.connector", destination.Name()),
	)
	e.log.Debug("pipeline resolved", "source", source.Name(), "destination", destination.Name(), "links", len(links))
	return source, destination, links, nil
}

func (e *execution) connection(ctx context.Context, id string) (store.Connection, error) {
	connection, err := e.runner.store.GetConnection(ctx, id)
	if err != nil {
		return store.Connection{}, fmt.Errorf("loading connection %s: %w", id, err)
	}
	if connection.Disabled {
		return store.Connection{}, syncerr.User(fmt.Errorf("%w: %s", ErrConnectionDisabled, id))
	}
	return connection, nil
}

// settingsChanged persists the settings of a connection as soon as an instance
// refreshes them.
func (e *execution) settingsChanged(connectionID string) connector.SettingsChanged {
	return func(ctx context.Context, settings map[string]any) error {
		if _, err := e.runner.store.PatchConnection(ctx, connectionID, store.ConnectionPatch{Settings: settings}); err != nil {
			return fmt.Errorf("persisting settings of connection %s: %w", connectionID, err)
		}
		e.log.Info("connection settings updated", "connectionId", connectionID)
		return nil
	}
}

func (e *execution) closeInstances(ctx context.Context, instances []any) {
	ctx = context.WithoutCancel(ctx)
	for _, instance := range instances {
		if err := connector.CloseInstance(ctx, instance); err != nil {
			e.log.Warn("failed to close connector instance", "error", err.Error())
		}
	}
}

// persistState writes the states last committed by the destination. completed also
// records the end of the sync.
func (e *execution) persistState(ctx context.Context, completed bool) error {
	if !e.committed && !completed {
		return nil
	}

	patch := store.PipelinePatch{}
	if e.committed {
		sourceState := e.committedSource
		patch.SourceState = &sourceState
		if e.committedDestination != nil {
			destinationState := e.committedDestination
			patch.DestinationState = &destinationState
		}
	}
	if completed {
		completedAt := e.runner.now().UTC()
		patch.LastSyncCompletedAt = &completedAt
	}

	if _, err := e.runner.store.PatchPipeline(ctx, e.pipeline.ID, patch); err != nil {
		return fmt.Errorf("persisting state of pipeline %s: %w", e.pipeline.ID, err)
	}
	return nil
}

func (e *execution) finish(ctx context.Context, runErr error) (store.Run, error) {
	ctx = context.WithoutCancel(ctx)
	failedIn := e.phase

	result := store.RunResult{
		Status:  store.RunStatusCompleted,
		Metrics: e.counters,
	}
	next := PhaseCompleted
	if runErr != nil {
		next = PhaseFailed
		result.Status = store.RunStatusFailed
		result.ErrorKind = string(syncerr.Classify(runErr))
		result.ErrorDetail = runErr.Error()

		if err := e.persistState(ctx, false); err != nil {
			e.log.Error("failed to persist committed state", "error", err.Error())
		}
	}
	if err := e.transition(next); err != nil {
		e.log.Error("unexpected run phase", "error", err.Error())
	}

	result.EndedAt = e.runner.now().UTC()
	run, err := e.runner.store.FinishRun(ctx, e.run.ID, result)
	if err != nil {
		e.log.Error("failed to record run result", "error", err.Error())
		run = e.run
		run.Status = result.Status
		run.EndedAt = &result.EndedAt
		run.ErrorKind = result.ErrorKind
		run.ErrorDetail = result.ErrorDetail
		run.Metrics = result.Metrics
	}

	sourceName, destinationName := e.sourceConnection.ConnectorName, e.destinationConnection.ConnectorName
	metrics.RunsInFlight.Dec()
	metrics.RunDuration.WithLabelValues(sourceName, destinationName).Observe(result.EndedAt.Sub(e.startedAt).Seconds())
	metrics.RunsTotal.WithLabelValues(sourceName, destinationName, string(result.Status), result.ErrorKind).Inc()

	e.emit(ctx, run)

	if runErr != nil {
		e.log.Error("sync failed", "phase", failedIn.String(), "errorKind", result.ErrorKind, "error", runErr.Error())
		return run, &RunError{RunID: run.ID, Phase: failedIn, Err: runErr}
	}

	e.log.Info("sync completed", "data", result.Metrics.Data, "commits", result.Metrics.Commits)
	if err != nil {
		return run, fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return run, nil
}

func (e *execution) emit(ctx context.Context, run store.Run) {
	if e.runner.emitter == nil {
		return
	}

	name := events.SyncCompleted
	if run.Status == store.RunStatusFailed {
		name = events.SyncFailed
	}
	e.runner.emitter.Emit(ctx, name, events.Payload{
		PipelineID:    e.pipeline.ID,
		SourceID:      e.pipeline.SourceID,
		DestinationID: e.pipeline.DestinationID,
		RunID:         run.ID,
		Result:        run.Status,
		ErrorKind:     run.ErrorKind,
		ErrorDetail:   run.ErrorDetail,
		Metrics:       run.Metrics,
	})
}
