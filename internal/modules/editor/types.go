package editor

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sublimart/studio/internal/canvas/area"
	canvas "github.com/sublimart/studio/internal/canvas/editor"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/history"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

// Session is one server-side editing session of a design.
type Session struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	DesignID    string       `json:"designId,omitempty"`
	ProductID   string       `json:"productId"`
	Name        string       `json:"name"`
	Background  string       `json:"background"`
	ColorFilter string       `json:"colorFilter"`
	Canvas      geom.Size    `json:"canvas"`
	Areas       []area.Area  `json:"areas"`
	State       canvas.State `json:"state"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func encodeSession(s *Session) ([]byte, error) { return json.Marshal(s) }

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type CreateSessionDTO struct {
	DesignID  string     `json:"designId"`
	ProductID string     `json:"productId"`
	Container *geom.Size `json:"container"`
}

type SelectDTO struct {
	ID    string `json:"id" binding:"required"`
	Multi bool   `json:"multi"`
}

type OrderDTO struct {
	ID string `json:"id" binding:"required"`
	Op string `json:"op" binding:"required,oneof=front back up down"`
}

type ViewportDTO struct {
	Op        string     `json:"op" binding:"required,oneof=fit zoom_in zoom_out reset wheel pan"`
	Container geom.Size  `json:"container"`
	Pointer   geom.Point `json:"pointer"`
	DeltaY    float64    `json:"deltaY"`
	DX        float64    `json:"dx"`
	DY        float64    `json:"dy"`
}

type SaveDTO struct {
	Name   string `json:"name"`
	AsCopy bool   `json:"asCopy"`
}

// sessionView is the client-facing form of a session.
type sessionView struct {
	ID          string          `json:"id"`
	DesignID    string          `json:"designId,omitempty"`
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Background  string          `json:"background"`
	ColorFilter string          `json:"colorFilter"`
	Canvas      geom.Size       `json:"canvas"`
	Areas       []area.Area     `json:"areas"`
	Elements    element.List    `json:"elements"`
	Selected    []string        `json:"selected"`
	View        viewport.State  `json:"view"`
	History     []history.Entry `json:"history"`
	CanUndo     bool            `json:"canUndo"`
	CanRedo     bool            `json:"canRedo"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type sessionSummary struct {
	ID        string    `json:"id"`
	DesignID  string    `json:"designId,omitempty"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Elements  int       `json:"elements"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrSessionNotFound = errors.New("editor session not found")
	ErrNoTarget        = errors.New("a designId or productId is required")
)
