package lake

import (
	"errors"
	"fmt"

	"github.com/roach88/statelake/internal/value"
)

// Verify walks the materialized tree and reports every broken invariant:
//   - a child's parent link must point back at its parent
//   - a container parent must hold the child's exact (Same) non-nullish state
//   - children of a nullish parent must be nullish
//
// It returns nil for a consistent tree.
func (l *Lake) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var errs []error
	verifyBranch(l.root, &errs)
	return errors.Join(errs...)
}

func verifyBranch(b *Branch, errs *[]error) {
	for _, key := range b.childKeys() {
		c := b.children[key]
		where := value.FormatPath(c.path)

		if c.parent.Value() != b {
			*errs = append(*errs, fmt.Errorf("%s: parent link does not point at %s", where, value.FormatPath(b.path)))
		}
		if value.IsContainer(b.state) && !value.IsNullish(c.state) &&
			!value.Same(value.Lookup(b.state, key), c.state) {
			*errs = append(*errs, fmt.Errorf("%s: parent holds %s, branch holds %s",
				where, value.Format(value.Lookup(b.state, key)), value.Format(c.state)))
		}
		if value.IsNullish(b.state) && !value.IsNullish(c.state) {
			*errs = append(*errs, fmt.Errorf("%s: holds %s under a nullish parent", where, value.Format(c.state)))
		}
		verifyBranch(c, errs)
	}
}
