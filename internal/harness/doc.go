// Package harness runs lake scenarios: scripted writes and subscriptions
// with expectations about who gets notified and what state results.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: structural_add
//	description: "Adding a key rebuilds the parent"
//	initial:            # or initial_cue: | ... or initial_file: state.json
//	  a: {x: 1}
//	watchers:
//	  - name: a
//	    path: /a
//	steps:
//	  - op: resolve
//	    path: /a
//	    as: a
//	  - op: set
//	    path: /a/y
//	    value: 5
//	    expect:
//	      notified: [a]
//	      state: 5
//	assertions:
//	  - type: same_ref
//	    ref: a
//	    want: false
//
// Paths are slash-separated; "/" is the root.
//
// # Step Operations
//
//   - set: write value at path
//   - apply_merge: shallow-merge an object into the value at path (null removes a key)
//   - delete: set the branch to null
//   - subscribe / unsubscribe: add or remove a named watcher
//   - resolve: materialize a branch, optionally capturing it under a label
//
// # Assertion Types
//
//   - state_equals: deep equality of the value at path
//   - keys: enumerable keys at path
//   - attached: whether a captured branch is still reachable
//   - notify_count: total notifications a watcher received
//   - same_ref: whether the value at path is still the captured container
//   - id_stable: whether a captured branch kept its id
//
// # Deterministic Testing
//
// Every scenario runs against a fresh lake with testutil.DeterministicClock
// generations and testutil.SequentialIDs branch ids, and the tree is
// checked with lake.Verify after every step. Traces are therefore stable
// across runs and compared against golden files in testdata/golden.
package harness
