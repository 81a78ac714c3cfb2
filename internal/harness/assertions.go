package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statelake/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	State    string // Root state for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.State != "" {
		fmt.Fprintf(&buf, "\nRoot state:\n  %s\n", e.State)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against the harness state and
// returns one message per failure.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(h, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(h *Harness, a Assertion) error {
	switch a.Type {
	case AssertStateEquals:
		return assertStateEquals(h, a)
	case AssertKeys:
		return assertKeys(h, a)
	case AssertAttached:
		return assertAttached(h, a)
	case AssertNotifyCount:
		return assertNotifyCount(h, a)
	case AssertSameRef:
		return assertSameRef(h, a)
	case AssertIDStable:
		return assertIDStable(h, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// want returns the expected boolean outcome, defaulting to true.
func (a Assertion) want() bool {
	return a.Want == nil || *a.Want
}

func (h *Harness) failure(kind, expected, actual string) *AssertionError {
	return &AssertionError{
		Type:     kind,
		Expected: expected,
		Actual:   actual,
		State:    value.Format(h.lake.State()),
	}
}

// assertStateEquals compares the value at a path by deep equality.
func assertStateEquals(h *Harness, a Assertion) error {
	want, err := nodeValue(&a.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	path := value.ParsePath(a.Path)
	got := h.stateAt(path)
	if value.Equal(want, got) {
		return nil
	}
	return h.failure(AssertStateEquals,
		fmt.Sprintf("%s at %s", value.Format(want), value.FormatPath(path)),
		value.Format(got),
	)
}

// assertKeys checks the enumerable keys at a path, in enumeration order.
func assertKeys(h *Harness, a Assertion) error {
	path := value.ParsePath(a.Path)
	got := value.Keys(h.stateAt(path))
	if slices.Equal(a.Keys, got) {
		return nil
	}
	return h.failure(AssertKeys,
		fmt.Sprintf("keys %v at %s", a.Keys, value.FormatPath(path)),
		fmt.Sprintf("keys %v", got),
	)
}

// assertAttached checks whether a captured branch is still reachable from the root.
func assertAttached(h *Harness, a Assertion) error {
	r := h.refs[a.Ref]
	got := r.branch.Attached()
	if got == a.want() {
		return nil
	}
	return h.failure(AssertAttached,
		fmt.Sprintf("ref %q attached=%t", a.Ref, a.want()),
		fmt.Sprintf("attached=%t", got),
	)
}

// assertNotifyCount checks the total number of notifications a watcher received.
func assertNotifyCount(h *Harness, a Assertion) error {
	w := h.watchers[a.Watcher]
	if w == nil {
		return fmt.Errorf("unknown watcher %q", a.Watcher)
	}
	if w.count == *a.Count {
		return nil
	}
	return h.failure(AssertNotifyCount,
		fmt.Sprintf("watcher %q notified %d times", a.Watcher, *a.Count),
		fmt.Sprintf("%d times", w.count),
	)
}

// assertSameRef checks whether the value at a path (default: the ref's own
// path) is still the very container captured by the ref.
func assertSameRef(h *Harness, a Assertion) error {
	r := h.refs[a.Ref]
	path := r.branch.Path()
	if a.Path != "" {
		path = value.ParsePath(a.Path)
	}
	got := value.Same(r.state, h.stateAt(path))
	if got == a.want() {
		return nil
	}
	return h.failure(AssertSameRef,
		fmt.Sprintf("value at %s same as ref %q: %t", value.FormatPath(path), a.Ref, a.want()),
		fmt.Sprintf("same=%t", got),
	)
}

// assertIDStable checks whether a captured branch kept its id.
func assertIDStable(h *Harness, a Assertion) error {
	r := h.refs[a.Ref]
	now := r.branch.ID()
	got := now == r.id
	if got == a.want() {
		return nil
	}
	return h.failure(AssertIDStable,
		fmt.Sprintf("ref %q id stable=%t (captured %s)", a.Ref, a.want(), r.id),
		fmt.Sprintf("id now %s", now),
	)
}
