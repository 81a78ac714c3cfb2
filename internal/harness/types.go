package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`
	Path string `json:"path"`

	// Seq is the write generation; 0 for steps that did not write.
	Seq int64 `json:"seq,omitempty"`

	// Kind is the write kind (noop, local, in_place, structural).
	Kind string `json:"kind,omitempty"`

	// Changed lists the paths whose state the write applied, in order.
	Changed []string `json:"changed,omitempty"`

	// Notified lists the watchers the step notified, sorted.
	Notified []string `json:"notified"`

	// Error is the error code of a rejected write.
	Error string `json:"error,omitempty"`
}

// wrote reports whether the step performed a write.
func (e TraceEvent) wrote() bool {
	return e.Seq != 0
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Trace contains one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalState is the root state after the last step, as plain Go values.
	FinalState any `json:"final_state"`

	// RootDigest is the content digest of the final root state.
	RootDigest string `json:"root_digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
