package editor

import (
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/history"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

// State is the serialisable form of an Editor.
type State struct {
	Elements element.List   `json:"elements"`
	Selected []string       `json:"selected"`
	View     viewport.State `json:"view"`
	History  history.Dump   `json:"history"`
}

// State captures the editor, history included.
func (e *Editor) State() State {
	return State{
		Elements: element.CloneList(e.elements),
		Selected: e.Selected(),
		View:     e.view.State(),
		History:  e.hist.Export(),
	}
}

// Restore rebuilds an editor from a captured state. The history limit from
// opts wins over the one stored in the dump.
func Restore(s State, opts Options) *Editor {
	e := New(opts)
	e.elements = element.CloneList(s.Elements)
	if e.elements == nil {
		e.elements = element.List{}
	}
	for _, id := range s.Selected {
		if el, _ := e.elements.Find(id); el != nil {
			e.selected = append(e.selected, id)
		}
	}
	e.view.Restore(s.View)
	if len(s.History.Snapshots) > 0 {
		dump := s.History
		dump.Limit = e.hist.Limit()
		e.hist = history.Import(dump)
	} else {
		e.hist.Initialize(e.elements)
	}
	return e
}
