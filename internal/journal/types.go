package journal

import (
	"github.com/roach88/statelake/internal/lake"
	"github.com/roach88/statelake/internal/value"
)

// Write is one journaled write.
type Write struct {
	Lake       string         `json:"lake"`
	Seq        int64          `json:"seq"`
	Op         string         `json:"op"`
	Path       string         `json:"path"`
	Kind       lake.WriteKind `json:"kind"`
	Notified   int            `json:"notified"`
	Detached   int            `json:"detached"`
	RootDigest string         `json:"root_digest,omitempty"`

	Changed []Notification `json:"changed"`
}

// Notification is one branch whose state a write applied.
type Notification struct {
	BranchID  string `json:"branch_id"`
	Path      string `json:"path"`
	Observers int    `json:"observers"`
}

// FromEvent converts a lake event into its journal form.
// Paths are stored in their slash-separated form.
func FromEvent(ev lake.WriteEvent) Write {
	w := Write{
		Lake:       ev.Lake,
		Seq:        ev.Seq,
		Op:         ev.Op,
		Path:       value.FormatPath(ev.Path),
		Kind:       ev.Kind,
		Notified:   ev.Notified(),
		Detached:   ev.Detached,
		RootDigest: ev.RootDigest,
		Changed:    make([]Notification, 0, len(ev.Changed)),
	}
	for _, c := range ev.Changed {
		w.Changed = append(w.Changed, Notification{
			BranchID:  c.ID,
			Path:      value.FormatPath(c.Path),
			Observers: c.Observers,
		})
	}
	return w
}
