package editor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/element"
)

// Selected returns the selected ids in selection order.
func (e *Editor) Selected() []string {
	return append([]string{}, e.selected...)
}

// IsSelected reports whether id is selected.
func (e *Editor) IsSelected(id string) bool {
	for _, s := range e.selected {
		if s == id {
			return true
		}
	}
	return false
}

// Select makes id the selection. With multi, id is toggled in the current
// selection instead.
func (e *Editor) Select(id string, multi bool) error {
	if el, _ := e.elements.Find(id); el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	switch {
	case !multi:
		e.selected = []string{id}
	case e.IsSelected(id):
		e.deselect(id)
	default:
		e.selected = append(e.Selected(), id)
	}
	e.rebind()
	return nil
}

// ClearSelection deselects everything.
func (e *Editor) ClearSelection() {
	e.selected = nil
	e.rebind()
}

// SelectAll selects every element that is visible and not locked.
func (e *Editor) SelectAll() {
	ids := make([]string, 0, len(e.elements))
	for _, el := range e.elements {
		if a := el.Base(); a.Visible && !a.Locked {
			ids = append(ids, a.ID)
		}
	}
	e.selected = ids
	e.rebind()
}

func (e *Editor) deselect(id string) bool {
	for i, s := range e.selected {
		if s == id {
			next := make([]string, 0, len(e.selected)-1)
			next = append(next, e.selected[:i]...)
			e.selected = append(next, e.selected[i+1:]...)
			return true
		}
	}
	return false
}

// rebind hands the selection to the binder. A failure leaves the handles
// detached; the editor state is unaffected.
func (e *Editor) rebind() {
	if e.binder == nil {
		return
	}
	if err := e.binder.Bind(e.Selected()); err != nil {
		e.logger.Debug("transform handle bind failed", zap.Strings("ids", e.selected), zap.Error(err))
	}
}

// BringToFront moves the element to the end of the list.
func (e *Editor) BringToFront(id string) error {
	return e.reorder(id, func(i, n int) int { return n - 1 })
}

// SendToBack moves the element to the start of the list.
func (e *Editor) SendToBack(id string) error {
	return e.reorder(id, func(int, int) int { return 0 })
}

// MoveLayer swaps the element with its neighbour in direction dir. At
// either end of the list it does nothing.
func (e *Editor) MoveLayer(id string, dir Direction) error {
	switch dir {
	case Up:
		return e.reorder(id, func(i, n int) int { return min(i+1, n-1) })
	case Down:
		return e.reorder(id, func(i, _ int) int { return max(i-1, 0) })
	}
	return fmt.Errorf("unknown layer direction %q", dir)
}

func (e *Editor) reorder(id string, target func(i, n int) int) error {
	el, i := e.elements.Find(id)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	j := target(i, len(e.elements))
	if j == i {
		return nil
	}
	next := make(element.List, 0, len(e.elements))
	next = append(next, e.elements[:i]...)
	next = append(next, e.elements[i+1:]...)
	next = append(next[:j], append(element.List{el}, next[j:]...)...)
	e.elements = next
	return nil
}
