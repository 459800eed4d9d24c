// Package editor holds the live state of one design editor: the element
// list, the selection, the view transform and the undo history.
//
// Every mutation replaces the element slice instead of writing into it, so
// a list obtained from Elements is never changed behind the caller's back.
// An Editor is owned by one session and is not safe for concurrent use.
package editor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/history"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

// DefaultDuplicateOffset is how far Duplicate moves the copy on each axis.
const DefaultDuplicateOffset = 20

var (
	ErrElementNotFound = errors.New("element not found")
	ErrAreaFull        = errors.New("area is full")
)

// Direction is a one-step z-order move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Binder attaches the transform handles of a rendering surface to the
// selected elements. Bind errors are logged and otherwise ignored.
type Binder interface {
	Bind(ids []string) error
}

// Options configures an Editor. Zero values get defaults.
type Options struct {
	Viewport        viewport.Config
	HistoryLimit    int
	DuplicateOffset float64
	Areas           *area.Set
	Binder          Binder
	Logger          *zap.Logger
}

// Editor is the canvas state of one design.
type Editor struct {
	elements  element.List
	selected  []string
	view      *viewport.Viewport
	hist      *history.History
	areas     *area.Set
	binder    Binder
	dupOffset float64
	logger    *zap.Logger
}

// New returns an empty editor whose history holds one empty snapshot.
func New(opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	offset := opts.DuplicateOffset
	if offset == 0 {
		offset = DefaultDuplicateOffset
	}
	e := &Editor{
		elements:  element.List{},
		view:      viewport.New(opts.Viewport),
		hist:      history.New(opts.HistoryLimit),
		areas:     opts.Areas,
		binder:    opts.Binder,
		dupOffset: offset,
		logger:    logger.Named("Editor"),
	}
	e.hist.Initialize(e.elements)
	return e
}

// Load replaces the element list, clears the selection and resets the
// history to a single snapshot of elements.
func (e *Editor) Load(elements element.List) {
	e.elements = element.CloneList(elements)
	if e.elements == nil {
		e.elements = element.List{}
	}
	e.selected = nil
	e.hist.Initialize(e.elements)
	e.rebind()
}

// Elements returns a deep copy of the element list in z-order.
func (e *Editor) Elements() element.List { return element.CloneList(e.elements) }

// Len returns the number of top-level elements.
func (e *Editor) Len() int { return len(e.elements) }

// Viewport exposes the view transform.
func (e *Editor) Viewport() *viewport.Viewport { return e.view }

// History exposes the undo stack.
func (e *Editor) History() *history.History { return e.hist }

// Areas returns the customization areas, or nil when none are configured.
func (e *Editor) Areas() *area.Set { return e.areas }

// Find returns a copy of the element with the given id.
func (e *Editor) Find(id string) (element.Element, bool) {
	el, _ := e.elements.Find(id)
	if el == nil {
		return nil, false
	}
	return element.Clone(el), true
}

// Add appends el on top of the stack. Its id must be new to the design and
// its area, when configured, must have room.
func (e *Editor) Add(el element.Element) error {
	if el == nil {
		return fmt.Errorf("add element: %w", element.ErrUnsupportedType)
	}
	if err := e.checkIDs(el, ""); err != nil {
		return err
	}
	if err := e.checkCapacity(el.Base().AreaID, ""); err != nil {
		return err
	}
	next := make(element.List, 0, len(e.elements)+1)
	next = append(next, e.elements...)
	e.elements = append(next, element.Clone(el))
	return nil
}

// Update applies patch to the element with the given id and returns the
// updated copy.
func (e *Editor) Update(id string, patch map[string]any) (element.Element, error) {
	cur, i := e.elements.Find(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	updated, err := element.Patch(cur, patch)
	if err != nil {
		return nil, err
	}
	if areaID := updated.Base().AreaID; areaID != cur.Base().AreaID {
		if err := e.checkCapacity(areaID, id); err != nil {
			return nil, err
		}
	}
	if g, ok := updated.(*element.Group); ok {
		if err := e.checkIDs(g, id); err != nil {
			return nil, err
		}
	}
	e.replaceAt(i, updated)
	return element.Clone(updated), nil
}

// Move sets the position of an element.
func (e *Editor) Move(id string, x, y float64) (element.Element, error) {
	return e.Update(id, map[string]any{"x": x, "y": y})
}

// Remove deletes the element with the given id and drops it from the
// selection.
func (e *Editor) Remove(id string) error {
	_, i := e.elements.Find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	next := make(element.List, 0, len(e.elements)-1)
	next = append(next, e.elements[:i]...)
	e.elements = append(next, e.elements[i+1:]...)
	if e.deselect(id) {
		e.rebind()
	}
	return nil
}

// RemoveSelected deletes every selected element and clears the selection.
// It returns the number of elements removed.
func (e *Editor) RemoveSelected() int {
	if len(e.selected) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(e.selected))
	for _, id := range e.selected {
		drop[id] = struct{}{}
	}
	next := make(element.List, 0, len(e.elements))
	for _, el := range e.elements {
		if _, ok := drop[el.Base().ID]; !ok {
			next = append(next, el)
		}
	}
	removed := len(e.elements) - len(next)
	e.elements = next
	e.selected = nil
	e.rebind()
	return removed
}

// Duplicate copies the element under a fresh id, offsets it and places the
// copy on top. Group children get fresh ids too.
func (e *Editor) Duplicate(id string) (element.Element, error) {
	cur, _ := e.elements.Find(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if err := e.checkCapacity(cur.Base().AreaID, ""); err != nil {
		return nil, err
	}
	dup := element.Translate(cur, e.dupOffset, e.dupOffset)
	renumber(dup)
	next := make(element.List, 0, len(e.elements)+1)
	next = append(next, e.elements...)
	e.elements = append(next, dup)
	return element.Clone(dup), nil
}

func renumber(el element.Element) {
	el.Base().ID = element.NewID(el.Kind())
	if g, ok := el.(*element.Group); ok {
		for _, c := range g.Children {
			renumber(c)
		}
	}
}

// ElementAt returns the topmost visible element whose bounds contain the
// canvas point.
func (e *Editor) ElementAt(p geom.Point) (element.Element, bool) {
	for i := len(e.elements) - 1; i >= 0; i-- {
		el := e.elements[i]
		if el.Base().Visible && element.Bounds(el).Contains(p.X, p.Y) {
			return element.Clone(el), true
		}
	}
	return nil, false
}

// PointerPosition maps a stage point into canvas space.
func (e *Editor) PointerPosition(stage geom.Point) geom.Point {
	return e.view.ToCanvas(stage)
}

// Commit records the current element list in the history under action.
// It reports false while a replay is running.
func (e *Editor) Commit(action string) bool {
	return e.hist.Add(e.elements, action)
}

// Undo restores the previous snapshot. It reports false at the start of the
// history and leaves the state untouched.
func (e *Editor) Undo() bool {
	_, ok := e.hist.Undo(e.apply)
	return ok
}

// Redo restores the next snapshot.
func (e *Editor) Redo() bool {
	_, ok := e.hist.Redo(e.apply)
	return ok
}

func (e *Editor) apply(l element.List) {
	e.elements = l
	kept := e.selected[:0:0]
	for _, id := range e.selected {
		if el, _ := l.Find(id); el != nil {
			kept = append(kept, id)
		}
	}
	e.selected = kept
	e.rebind()
}

func (e *Editor) replaceAt(i int, el element.Element) {
	next := make(element.List, len(e.elements))
	copy(next, e.elements)
	next[i] = el
	e.elements = next
}

// checkIDs rejects el when one of its subtree ids is already used by an
// element other than the one with id self.
func (e *Editor) checkIDs(el element.Element, self string) error {
	used := map[string]struct{}{}
	for _, cur := range e.elements {
		if cur.Base().ID == self {
			continue
		}
		used[cur.Base().ID] = struct{}{}
		if g, ok := cur.(*element.Group); ok {
			g.Walk(func(c element.Element) { used[c.Base().ID] = struct{}{} })
		}
	}
	check := func(id string) error {
		if _, dup := used[id]; dup {
			return fmt.Errorf("%w: %s", element.ErrDuplicateID, id)
		}
		return nil
	}
	if err := check(el.Base().ID); err != nil {
		return err
	}
	if g, ok := el.(*element.Group); ok {
		var err error
		g.Walk(func(c element.Element) {
			if err == nil {
				err = check(c.Base().ID)
			}
		})
		return err
	}
	return nil
}

// checkCapacity reports ErrAreaFull when areaID has no room left. The
// element with id self is not counted.
func (e *Editor) checkCapacity(areaID, self string) error {
	if e.areas == nil {
		return nil
	}
	others := make(element.List, 0, len(e.elements))
	for _, el := range e.elements {
		if el.Base().ID != self {
			others = append(others, el)
		}
	}
	if res := e.areas.CanAdd(areaID, others); !res.IsValid {
		return fmt.Errorf("%w: %s", ErrAreaFull, res.Errors[0].Message)
	}
	return nil
}
