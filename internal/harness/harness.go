package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/statelake/internal/lake"
	"github.com/roach88/statelake/internal/testutil"
	"github.com/roach88/statelake/internal/value"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	recorder lake.Recorder
	metrics  *lake.Metrics
}

// WithLogger routes lake and harness logs to logger.
//
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRecorder forwards every write event to r (e.g. a journal recorder).
func WithRecorder(r lake.Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithMetrics attaches lake metrics to the scenario's lake.
func WithMetrics(m *lake.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// Harness executes one scenario against a fresh lake.
type Harness struct {
	lake   *lake.Lake
	logger *slog.Logger

	watchers map[string]*watcher
	refs     map[string]*ref

	// per-step capture, written by the recorder and observers
	lastEvent *lake.WriteEvent
	notified  []string
}

type watcher struct {
	name   string
	branch *lake.Branch
	unsub  func()
	count  int
}

// ref is a branch captured by a resolve step.
type ref struct {
	branch *lake.Branch
	id     string
	state  value.Value
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh lake with a deterministic clock and
// sequential branch ids, so two runs produce identical traces.
//
// Execution flow:
// 1. Build the initial state (inline, CUE or file)
// 2. Subscribe declared watchers
// 3. Execute steps, checking expect clauses and tree consistency after each
// 4. Evaluate assertions
//
// Expectation failures are reported in the result; the returned error is
// reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	initial, err := scenario.InitialState()
	if err != nil {
		return nil, fmt.Errorf("failed to load initial state: %w", err)
	}

	h := &Harness{
		logger:   cfg.logger,
		watchers: make(map[string]*watcher),
		refs:     make(map[string]*ref),
	}

	capture := lake.RecorderFunc(func(ev lake.WriteEvent) error {
		h.lastEvent = &ev
		if cfg.recorder != nil {
			return cfg.recorder.Record(ev)
		}
		return nil
	})

	lakeOpts := []lake.Option{
		lake.WithName(scenario.LakeName()),
		lake.WithClock(testutil.NewDeterministicClock()),
		lake.WithIDGenerator(testutil.NewSequentialIDs("b")),
		lake.WithLogger(cfg.logger),
		lake.WithRecorder(capture),
		lake.WithMetrics(cfg.metrics),
	}
	// capture hides the forwarded recorder's type from the lake.
	if d, ok := cfg.recorder.(lake.RootDigester); ok && d.RecordsRootDigest() {
		lakeOpts = append(lakeOpts, lake.WithRootDigests())
	}
	h.lake = lake.New(initial, lakeOpts...)
	defer h.close()

	for _, w := range scenario.Watchers {
		h.subscribe(w.Name, value.ParsePath(w.Path))
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(h, scenario.Assertions) {
		result.AddError(errMsg)
	}

	final := h.lake.State()
	result.FinalState = value.ToAny(final)
	result.RootDigest, err = value.Digest(final)
	if err != nil {
		return nil, fmt.Errorf("failed to digest final state: %w", err)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// close unsubscribes every watcher still registered.
func (h *Harness) close() {
	for _, w := range h.watchers {
		if w.unsub != nil {
			w.unsub()
		}
	}
}

func (h *Harness) subscribe(name string, path []string) {
	w := &watcher{name: name, branch: h.lake.Resolve(path...)}
	w.unsub = w.branch.Watch(func(int64) {
		w.count++
		h.notified = append(h.notified, w.name)
	})
	h.watchers[name] = w
}

// executeStep runs one step, appends its trace event and checks its expect clause.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	path := value.ParsePath(step.Path)
	ev := TraceEvent{
		Step:     i,
		Op:       step.Op,
		Path:     value.FormatPath(path),
		Notified: []string{},
	}
	h.lastEvent = nil
	h.notified = h.notified[:0]

	var writeErr error
	switch step.Op {
	case OpSet:
		v, err := nodeValue(&step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		_, writeErr = h.lake.Resolve(path...).Set(v)

	case OpApplyMerge:
		v, err := nodeValue(&step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		patch, ok := v.(*value.Object)
		if !ok {
			return fmt.Errorf("apply_merge value must be an object, got %s", value.KindOf(v))
		}
		_, writeErr = h.lake.Resolve(path...).Apply(func(prev value.Value) value.Value {
			return mergeObject(prev, patch)
		})

	case OpDelete:
		writeErr = h.lake.Resolve(path...).Delete()

	case OpSubscribe:
		h.subscribe(step.Watcher, path)

	case OpUnsubscribe:
		w, ok := h.watchers[step.Watcher]
		if !ok {
			return fmt.Errorf("unknown watcher %q", step.Watcher)
		}
		w.unsub()

	case OpResolve:
		b := h.lake.Resolve(path...)
		if step.As != "" {
			h.refs[step.As] = &ref{branch: b, id: b.ID(), state: b.State()}
		}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if writeErr != nil {
		var pe *lake.PathError
		if !errors.As(writeErr, &pe) {
			return writeErr
		}
		ev.Error = string(pe.Code)
	}

	if h.lastEvent != nil {
		ev.Seq = h.lastEvent.Seq
		ev.Kind = string(h.lastEvent.Kind)
		ev.Changed = make([]string, 0, len(h.lastEvent.Changed))
		for _, c := range h.lastEvent.Changed {
			ev.Changed = append(ev.Changed, value.FormatPath(c.Path))
		}
	}
	ev.Notified = append(ev.Notified, h.notified...)
	slices.Sort(ev.Notified)
	result.Trace = append(result.Trace, ev)

	if err := h.lake.Verify(); err != nil {
		result.AddError(fmt.Sprintf("step %d: inconsistent tree: %v", i, err))
	}

	h.checkExpect(i, step, ev, result)

	h.logger.Debug("step executed",
		"step", i,
		"op", step.Op,
		"path", ev.Path,
		"kind", ev.Kind,
		"notified", ev.Notified,
		"error", ev.Error,
	)
	return nil
}

// checkExpect validates the step's expect clause against what happened.
func (h *Harness) checkExpect(i int, step Step, ev TraceEvent, result *Result) {
	expectedErr := ""
	if step.Expect != nil {
		expectedErr = step.Expect.Error
	}
	if ev.Error != expectedErr {
		switch {
		case expectedErr == "":
			result.AddError(fmt.Sprintf("step %d: unexpected error %s", i, ev.Error))
		case ev.Error == "":
			result.AddError(fmt.Sprintf("step %d: expected error %s, write succeeded", i, expectedErr))
		default:
			result.AddError(fmt.Sprintf("step %d: expected error %s, got %s", i, expectedErr, ev.Error))
		}
	}

	if step.Expect == nil {
		return
	}

	if step.Expect.Notified != nil {
		want := slices.Clone(*step.Expect.Notified)
		slices.Sort(want)
		if !slices.Equal(want, ev.Notified) {
			result.AddError(fmt.Sprintf("step %d: expected notified %v, got %v", i, want, ev.Notified))
		}
	}

	if present(step.Expect.State) {
		want, err := nodeValue(&step.Expect.State)
		if err != nil {
			result.AddError(fmt.Sprintf("step %d: expect.state: %v", i, err))
			return
		}
		got := h.stateAt(value.ParsePath(step.Path))
		if !value.Equal(want, got) {
			result.AddError(fmt.Sprintf("step %d: expected state %s at %s, got %s",
				i, value.Format(want), ev.Path, value.Format(got)))
		}
	}
}

// stateAt reads the value at path without materializing branches.
func (h *Harness) stateAt(path []string) value.Value {
	v := h.lake.State()
	for _, key := range path {
		v = value.Lookup(v, key)
	}
	return v
}

// mergeObject shallow-merges patch into prev. A null patch entry removes
// the key. A non-object prev is replaced by a new object.
func mergeObject(prev value.Value, patch *value.Object) value.Value {
	var out *value.Object
	if obj, ok := prev.(*value.Object); ok {
		out = obj.Clone()
	} else {
		out = value.NewObject()
	}
	for _, key := range patch.Keys() {
		v, _ := patch.Get(key)
		if value.KindOf(v) == value.KindNull {
			out.Delete(key)
			continue
		}
		out.Set(key, v)
	}
	return out
}
