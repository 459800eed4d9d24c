// Package editor exposes the canvas editor over REST. Each session keeps
// an editor state (elements, selection, view and undo history) in a Store
// between requests; every call restores it, applies one operation and
// writes it back.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/area"
	canvas "github.com/sublimart/studio/internal/canvas/editor"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/viewport"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/modules/design"
	"github.com/sublimart/studio/internal/modules/product"
)

const (
	DefaultTTL = 12 * time.Hour
	lockStripes = 64
)

// ProductSource looks up products; *product.Service implements it.
type ProductSource interface {
	Get(idOrSlug string) (*models.ProductModel, error)
}

// DesignStore loads and saves designs; *design.Service implements it.
type DesignStore interface {
	Get(id string) (*models.DesignModel, error)
	Create(ctx context.Context, actor design.Actor, dto *design.SaveDesignDTO) (*models.DesignModel, error)
	Update(ctx context.Context, actor design.Actor, id string, dto *design.SaveDesignDTO) (*models.DesignModel, error)
}

// Config holds the editor defaults applied to every session.
type Config struct {
	Viewport        viewport.Config
	HistoryLimit    int
	DuplicateOffset float64
	TTL             time.Duration
}

type Service struct {
	store    Store
	products ProductSource
	designs  DesignStore
	cfg      Config
	locks    [lockStripes]sync.Mutex
	now      func() time.Time
	logger   *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("EditorService")
		}
	}
}

func NewService(store Store, products ProductSource, designs DesignStore, cfg Config, opts ...ServiceOption) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &Service{store: store, products: products, designs: designs, cfg: cfg, now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// lock serialises operations on one session within this process.
func (s *Service) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func (s *Service) options(sess *Session) canvas.Options {
	vp := s.cfg.Viewport
	if !sess.Canvas.Empty() {
		vp.Canvas = sess.Canvas
	}
	var areas *area.Set
	if len(sess.Areas) > 0 {
		areas = area.NewSet(sess.Areas)
	}
	return canvas.Options{
		Viewport:        vp,
		HistoryLimit:    s.cfg.HistoryLimit,
		DuplicateOffset: s.cfg.DuplicateOffset,
		Areas:           areas,
		Logger:          s.logger,
	}
}

// Editor rebuilds the live editor of sess with the configured zoom limits,
// history depth and areas. Read-only callers use it to project points and
// list history without mutating the session.
func (s *Service) Editor(sess *Session) *canvas.Editor {
	return canvas.Restore(sess.State, s.options(sess))
}

// Create opens a session on an existing design, or on a blank design for
// a product.
func (s *Service) Create(ctx context.Context, userID string, dto *CreateSessionDTO) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), UserID: userID, CreatedAt: s.now()}
	var elements element.List

	switch {
	case dto.DesignID != "":
		d, err := s.designs.Get(dto.DesignID)
		if err != nil {
			return nil, err
		}
		var items []element.BackendElement
		if len(d.Elements) > 0 {
			if err := json.Unmarshal(d.Elements, &items); err != nil {
				return nil, fmt.Errorf("decode design %s: %w", d.ID, err)
			}
		}
		list, skipped, err := element.FromBackendList(items)
		if err != nil {
			return nil, fmt.Errorf("load design %s: %w", d.ID, err)
		}
		if err := list.CheckUniqueIDs(); err != nil {
			return nil, fmt.Errorf("load design %s: %w", d.ID, err)
		}
		for _, be := range skipped {
			s.logger.Warn("dropping unsupported element", zap.String("design", d.ID), zap.String("id", be.ID), zap.String("type", be.Type))
		}
		elements = list
		sess.DesignID, sess.ProductID, sess.Name = d.ID, d.ProductID, d.Name
		sess.ColorFilter = d.ProductColorFilter
		var cc struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		}
		if len(d.CanvasConfig) > 0 && json.Unmarshal(d.CanvasConfig, &cc) == nil {
			sess.Canvas = geom.Size{Width: cc.Width, Height: cc.Height}
		}
	case dto.ProductID != "":
		sess.ProductID = dto.ProductID
	default:
		return nil, ErrNoTarget
	}

	p, err := s.products.Get(sess.ProductID)
	if err != nil {
		return nil, err
	}
	sess.ProductID = p.ID
	sess.Background = p.Images.Main
	if sess.Canvas.Empty() {
		sess.Canvas = geom.Size{Width: p.CanvasWidth, Height: p.CanvasHeight}
	}
	sess.Areas = product.AreasFor(p, sess.Canvas)
	if sess.Name == "" {
		sess.Name = p.Name
	}

	ed := canvas.New(s.options(sess))
	ed.Load(elements)
	if dto.Container != nil {
		ed.Viewport().Fit(*dto.Container)
	}
	sess.State = ed.State()
	sess.UpdatedAt = sess.CreatedAt
	if err := s.store.Put(ctx, sess, s.cfg.TTL); err != nil {
		return nil, err
	}
	s.logger.Info("editor session opened", zap.String("id", sess.ID),
		zap.String("designId", sess.DesignID), zap.String("productId", sess.ProductID))
	return sess, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Session, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) Close(ctx context.Context, userID, id string) error {
	defer s.lock(id)()
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, sess)
}

// Op is one editor operation. It returns a result for the client and the
// history label to commit under; an empty label records nothing.
type Op func(ed *canvas.Editor, sess *Session) (result any, action string, err error)

// Do restores the session, runs op and stores the new state. A failed op
// leaves the stored session untouched.
func (s *Service) Do(ctx context.Context, userID, id string, op Op) (*Session, any, error) {
	defer s.lock(id)()
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	ed := s.Editor(sess)
	result, action, err := op(ed, sess)
	if err != nil {
		return nil, nil, err
	}
	if action != "" {
		ed.Commit(action)
	}
	sess.State = ed.State()
	sess.UpdatedAt = s.now()
	if err := s.store.Put(ctx, sess, s.cfg.TTL); err != nil {
		return nil, nil, err
	}
	return sess, result, nil
}

// Save writes the session's elements to its design, creating the design
// on first save or when asCopy is set.
func (s *Service) Save(ctx context.Context, actor design.Actor, id string, dto *SaveDTO) (*models.DesignModel, error) {
	var saved *models.DesignModel
	_, _, err := s.Do(ctx, actor.UserID, id, func(ed *canvas.Editor, sess *Session) (any, string, error) {
		name := strings.TrimSpace(dto.Name)
		if name == "" {
			name = sess.Name
		}
		cc, _ := json.Marshal(map[string]float64{"width": sess.Canvas.Width, "height": sess.Canvas.Height})
		body := &design.SaveDesignDTO{
			Name:               name,
			ProductID:          sess.ProductID,
			Elements:           element.ToBackendList(ed.Elements()),
			CanvasConfig:       cc,
			ProductColorFilter: sess.ColorFilter,
		}
		var err error
		if sess.DesignID == "" || dto.AsCopy {
			saved, err = s.designs.Create(ctx, actor, body)
		} else {
			saved, err = s.designs.Update(ctx, actor, sess.DesignID, body)
		}
		if err != nil {
			return nil, "", err
		}
		sess.DesignID, sess.Name = saved.ID, saved.Name
		return saved, "", nil
	})
	if err != nil {
		if saved == nil {
			return nil, err
		}
		// The design is written but the session still points at the old
		// one; without a relink the next save would create another copy.
		s.logger.Error("design saved but session not updated",
			zap.String("id", id), zap.String("designId", saved.ID), zap.Error(err))
		if rerr := s.relink(ctx, actor.UserID, id, saved); rerr != nil {
			return nil, fmt.Errorf("relink design %s: %w", saved.ID, errors.Join(err, rerr))
		}
	}
	s.logger.Info("editor session saved", zap.String("id", id), zap.String("designId", saved.ID))
	return saved, nil
}

func (s *Service) relink(ctx context.Context, userID, id string, saved *models.DesignModel) error {
	defer s.lock(id)()
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	sess.DesignID, sess.Name = saved.ID, saved.Name
	sess.UpdatedAt = s.now()
	return s.store.Put(ctx, sess, s.cfg.TTL)
}

// IsNotFound reports whether err means the session, design or product is
// missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, design.ErrNotFound) || errors.Is(err, product.ErrNotFound)
}
