package editor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	canvas "github.com/sublimart/studio/internal/canvas/editor"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/middleware"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/modules/design"
	"github.com/sublimart/studio/internal/pkg/response"
)

// maxElementBytes bounds one element body; image data URIs dominate it.
const maxElementBytes = 16 << 20

type editorService interface {
	Create(ctx context.Context, userID string, dto *CreateSessionDTO) (*Session, error)
	Get(ctx context.Context, userID, id string) (*Session, error)
	List(ctx context.Context, userID string) ([]*Session, error)
	Close(ctx context.Context, userID, id string) error
	Do(ctx context.Context, userID, id string, op Op) (*Session, any, error)
	Save(ctx context.Context, actor design.Actor, id string, dto *SaveDTO) (*models.DesignModel, error)
	Editor(sess *Session) *canvas.Editor
}

type Handler struct {
	svc editorService
}

func NewHandler(svc editorService) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/editor/sessions", authMW)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.close)

	g.POST("/:id/elements", h.addElement)
	g.PATCH("/:id/elements/:eid", h.updateElement)
	g.DELETE("/:id/elements/:eid", h.removeElement)
	g.POST("/:id/elements/:eid/duplicate", h.duplicate)

	g.POST("/:id/selection", h.selectElement)
	g.DELETE("/:id/selection", h.clearSelection)
	g.POST("/:id/selection/all", h.selectAll)
	g.DELETE("/:id/selection/elements", h.removeSelected)

	g.POST("/:id/order", h.order)
	g.POST("/:id/viewport", h.viewport)
	g.POST("/:id/pointer", h.pointer)

	g.POST("/:id/undo", h.undo)
	g.POST("/:id/redo", h.redo)
	g.GET("/:id/history", h.history)
	g.POST("/:id/save", h.save)
}

func (h *Handler) view(s *Session) *sessionView {
	ed := h.svc.Editor(s)
	elements := s.State.Elements
	if elements == nil {
		elements = element.List{}
	}
	selected := s.State.Selected
	if selected == nil {
		selected = []string{}
	}
	return &sessionView{
		ID:          s.ID,
		DesignID:    s.DesignID,
		ProductID:   s.ProductID,
		Name:        s.Name,
		Background:  s.Background,
		ColorFilter: s.ColorFilter,
		Canvas:      s.Canvas,
		Areas:       s.Areas,
		Elements:    elements,
		Selected:    selected,
		View:        s.State.View,
		History:     ed.History().Entries(),
		CanUndo:     ed.History().CanUndo(),
		CanRedo:     ed.History().CanRedo(),
		UpdatedAt:   s.UpdatedAt,
	}
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, h.view(s))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]sessionSummary, 0, len(items))
	for _, s := range items {
		out = append(out, sessionSummary{
			ID: s.ID, DesignID: s.DesignID, ProductID: s.ProductID, Name: s.Name,
			Elements: len(s.State.Elements), UpdatedAt: s.UpdatedAt,
		})
	}
	response.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, h.view(s))
}

func (h *Handler) close(c *gin.Context) {
	if err := h.svc.Close(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// run applies op and answers with the updated session view.
func (h *Handler) run(c *gin.Context, op Op) {
	s, _, err := h.svc.Do(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), op)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, h.view(s))
}

func (h *Handler) addElement(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxElementBytes+1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(body) > maxElementBytes {
		response.PayloadTooLarge(c, "element too large")
		return
	}
	el, err := element.Decode(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		assignArea(ed, el)
		if err := ed.Add(el); err != nil {
			return nil, "", err
		}
		return el, "add_" + string(el.Kind()), nil
	})
}

// assignArea places an element left in the default area into the
// customization area under its origin, or the first area when none
// contains it.
func assignArea(ed *canvas.Editor, el element.Element) {
	a := el.Base()
	set := ed.Areas()
	if (a.AreaID != "" && a.AreaID != element.DefaultAreaID) || set.Len() == 0 {
		return
	}
	if found, ok := set.ForPosition(a.X, a.Y); ok {
		a.AreaID = found.ID
		return
	}
	a.AreaID = set.Areas()[0].ID
}

func (h *Handler) updateElement(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// "snap" is a request flag, not an element attribute.
	snap, _ := patch["snap"].(bool)
	delete(patch, "snap")
	if len(patch) == 0 && !snap {
		response.BadRequest(c, "empty patch")
		return
	}
	eid := c.Param("eid")
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		var (
			el  element.Element
			err error
		)
		if len(patch) > 0 {
			if el, err = ed.Update(eid, patch); err != nil {
				return nil, "", err
			}
		} else if el, err = findElement(ed, eid); err != nil {
			return nil, "", err
		}
		if snap {
			if el, err = snapToArea(ed, el); err != nil {
				return nil, "", err
			}
		}
		return el, "update_element", nil
	})
}

func findElement(ed *canvas.Editor, id string) (element.Element, error) {
	el, ok := ed.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", canvas.ErrElementNotFound, id)
	}
	return el, nil
}

// snapToArea pulls the element's position onto the edges of its area
// when it lies within the snap threshold.
func snapToArea(ed *canvas.Editor, el element.Element) (element.Element, error) {
	areas := ed.Areas()
	if areas == nil {
		return el, nil
	}
	a := el.Base()
	x, y := areas.Snap(a.X, a.Y, a.AreaID)
	if x == a.X && y == a.Y {
		return el, nil
	}
	return ed.Move(a.ID, x, y)
}

func (h *Handler) removeElement(c *gin.Context) {
	eid := c.Param("eid")
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		return nil, "delete_element", ed.Remove(eid)
	})
}

func (h *Handler) duplicate(c *gin.Context) {
	eid := c.Param("eid")
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		el, err := ed.Duplicate(eid)
		return el, "duplicate_element", err
	})
}

func (h *Handler) selectElement(c *gin.Context) {
	var dto SelectDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		return nil, "", ed.Select(dto.ID, dto.Multi)
	})
}

func (h *Handler) clearSelection(c *gin.Context) {
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		ed.ClearSelection()
		return nil, "", nil
	})
}

func (h *Handler) selectAll(c *gin.Context) {
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		ed.SelectAll()
		return nil, "", nil
	})
}

func (h *Handler) removeSelected(c *gin.Context) {
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		if ed.RemoveSelected() == 0 {
			return nil, "", nil
		}
		return nil, "delete_selected", nil
	})
}

func (h *Handler) order(c *gin.Context) {
	var dto OrderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		switch dto.Op {
		case "front":
			return nil, "bring_to_front", ed.BringToFront(dto.ID)
		case "back":
			return nil, "send_to_back", ed.SendToBack(dto.ID)
		case "up":
			return nil, "move_up", ed.MoveLayer(dto.ID, canvas.Up)
		default:
			return nil, "move_down", ed.MoveLayer(dto.ID, canvas.Down)
		}
	})
}

func (h *Handler) viewport(c *gin.Context) {
	var dto ViewportDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Op == "fit" && dto.Container.Empty() {
		response.BadRequest(c, "fit requires a container size")
		return
	}
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		vp := ed.Viewport()
		switch dto.Op {
		case "fit":
			return vp.Fit(dto.Container), "", nil
		case "zoom_in":
			return vp.ZoomIn(), "", nil
		case "zoom_out":
			return vp.ZoomOut(), "", nil
		case "reset":
			return vp.ResetZoom(), "", nil
		case "wheel":
			return vp.Wheel(dto.Pointer, dto.DeltaY), "", nil
		default:
			return vp.Pan(dto.DX, dto.DY), "", nil
		}
	})
}

// pointer maps a stage point into canvas space and reports the element
// under it. It never changes the session.
func (h *Handler) pointer(c *gin.Context) {
	var p geom.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ed := h.svc.Editor(s)
	pos := ed.PointerPosition(p)
	out := gin.H{"position": pos, "element": nil}
	if el, ok := ed.ElementAt(pos); ok {
		out["element"] = el
	}
	response.OK(c, out)
}

func (h *Handler) undo(c *gin.Context) {
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		ed.Undo()
		return nil, "", nil
	})
}

func (h *Handler) redo(c *gin.Context) {
	h.run(c, func(ed *canvas.Editor, _ *Session) (any, string, error) {
		ed.Redo()
		return nil, "", nil
	})
}

func (h *Handler) history(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	v := h.view(s)
	response.OK(c, gin.H{"entries": v.History, "canUndo": v.CanUndo, "canRedo": v.CanRedo})
}

func (h *Handler) save(c *gin.Context) {
	var dto SaveDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	actor := design.Actor{UserID: middleware.CurrentUserID(c), Role: middleware.CurrentRole(c)}
	d, err := h.svc.Save(c.Request.Context(), actor, c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"designId": d.ID, "name": d.Name})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *design.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Error(), verr)
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, "editor session not found")
	case errors.Is(err, canvas.ErrElementNotFound), errors.Is(err, design.ErrProductNotFound), IsNotFound(err):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrNoTarget):
		response.BadRequest(c, err.Error())
	case errors.Is(err, canvas.ErrAreaFull), errors.Is(err, element.ErrDuplicateID):
		response.Conflict(c, err.Error())
	case errors.Is(err, element.ErrImmutableField), errors.Is(err, element.ErrInvalidPatch),
		errors.Is(err, element.ErrCyclicGroup),
		errors.Is(err, element.ErrUnsupportedType):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, design.ErrForbidden):
		response.ForbiddenMsg(c, err.Error())
	default:
		response.InternalError(c, fmt.Errorf("editor: %w", err))
	}
}
