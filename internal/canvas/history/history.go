// Package history is the snapshot-based undo/redo engine of the editor.
//
// History is an explicit two-state machine. In Idle, Add appends snapshots.
// Undo and Redo switch to Replaying while the restored element list is
// handed to the caller's apply function, so any snapshot the caller would
// take while re-applying state is ignored. The switch back to Idle happens
// before Undo or Redo return.
package history

import (
	"time"

	"github.com/sublimart/studio/internal/canvas/element"
)

// DefaultLimit is the history depth used when none is configured.
const DefaultLimit = 50

// State is the replay state of a History.
type State int

const (
	Idle State = iota
	Replaying
)

func (s State) String() string {
	if s == Replaying {
		return "replaying"
	}
	return "idle"
}

// Snapshot is one archived element list.
type Snapshot struct {
	Elements  element.List `json:"elements"`
	Timestamp time.Time    `json:"timestamp"`
	Action    string       `json:"action"`
}

// Entry describes a snapshot without its elements.
type Entry struct {
	Index     int       `json:"index"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Current   bool      `json:"current"`
}

// History is a bounded linear undo stack with a cursor. It is not safe for
// concurrent use.
type History struct {
	limit     int
	snapshots []Snapshot
	index     int
	state     State
	now       func() time.Time
}

// New returns an empty history holding at most limit snapshots. A limit
// below one means DefaultLimit.
func New(limit int) *History {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &History{limit: limit, index: -1, now: time.Now}
}

// Limit returns the maximum depth.
func (h *History) Limit() int { return h.limit }

// State returns the replay state.
func (h *History) State() State { return h.state }

// Initialize discards every snapshot and starts over with one snapshot of
// elements.
func (h *History) Initialize(elements element.List) {
	h.snapshots = []Snapshot{h.snapshot(elements, "initial")}
	h.index = 0
	h.state = Idle
}

// Add records elements as the newest snapshot. Snapshots after the cursor
// are dropped; when the limit is exceeded the oldest snapshot goes. Add does
// nothing while a replay is in progress and reports whether it recorded.
func (h *History) Add(elements element.List, action string) bool {
	if h.state == Replaying {
		return false
	}
	h.snapshots = append(h.snapshots[:h.index+1], h.snapshot(elements, action))
	if over := len(h.snapshots) - h.limit; over > 0 {
		h.snapshots = append([]Snapshot(nil), h.snapshots[over:]...)
	}
	h.index = len(h.snapshots) - 1
	return true
}

// CanUndo reports whether a snapshot before the cursor exists.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether a snapshot after the cursor exists.
func (h *History) CanRedo() bool { return h.index >= 0 && h.index < len(h.snapshots)-1 }

// Undo moves the cursor back and returns a copy of that snapshot's elements.
// apply, when non-nil, receives its own copy while the history is
// Replaying. At the start of the stack Undo returns nil, false and changes
// nothing.
func (h *History) Undo(apply func(element.List)) (element.List, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.index--
	return h.replay(apply), true
}

// Redo moves the cursor forward; it mirrors Undo.
func (h *History) Redo(apply func(element.List)) (element.List, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.index++
	return h.replay(apply), true
}

func (h *History) replay(apply func(element.List)) element.List {
	current := h.snapshots[h.index].Elements
	if apply != nil {
		h.state = Replaying
		defer func() { h.state = Idle }()
		apply(element.CloneList(current))
	}
	return element.CloneList(current)
}

// Len returns the number of snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Index returns the cursor, or -1 when empty.
func (h *History) Index() int { return h.index }

// Current returns a copy of the snapshot under the cursor.
func (h *History) Current() (Snapshot, bool) {
	if h.index < 0 {
		return Snapshot{}, false
	}
	s := h.snapshots[h.index]
	s.Elements = element.CloneList(s.Elements)
	return s, true
}

// At returns a copy of the snapshot at index i.
func (h *History) At(i int) (Snapshot, bool) {
	if i < 0 || i >= len(h.snapshots) {
		return Snapshot{}, false
	}
	s := h.snapshots[i]
	s.Elements = element.CloneList(s.Elements)
	return s, true
}

// Entries lists the snapshots oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = Entry{Index: i, Action: s.Action, Timestamp: s.Timestamp, Current: i == h.index}
	}
	return out
}

// Dump is the persisted form of a History.
type Dump struct {
	Limit     int        `json:"limit"`
	Index     int        `json:"index"`
	Snapshots []Snapshot `json:"snapshots"`
}

// Export returns a deep copy of the stack.
func (h *History) Export() Dump {
	d := Dump{Limit: h.limit, Index: h.index, Snapshots: make([]Snapshot, len(h.snapshots))}
	for i, s := range h.snapshots {
		s.Elements = element.CloneList(s.Elements)
		d.Snapshots[i] = s
	}
	return d
}

// Import rebuilds a History from a dump. An out-of-range cursor is moved
// to the last snapshot.
func Import(d Dump) *History {
	h := New(d.Limit)
	snaps := d.Snapshots
	if over := len(snaps) - h.limit; over > 0 {
		snaps = snaps[over:]
		d.Index -= over
	}
	for _, s := range snaps {
		s.Elements = element.CloneList(s.Elements)
		h.snapshots = append(h.snapshots, s)
	}
	h.index = d.Index
	if h.index < 0 || h.index >= len(h.snapshots) {
		h.index = len(h.snapshots) - 1
	}
	return h
}

func (h *History) snapshot(elements element.List, action string) Snapshot {
	els := element.CloneList(elements)
	if els == nil {
		els = element.List{}
	}
	return Snapshot{Elements: els, Timestamp: h.now(), Action: action}
}
