package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/viewer"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/storage"
	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

// Renderer draws a scene; *viewer.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, s viewer.Scene) (*image.RGBA, viewer.Report, error)
}

// ObjectStore keeps rendered previews; *storage.Client implements it.
type ObjectStore interface {
	Key(name string) string
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// WithStore caches rendered previews in object storage.
func WithStore(st ObjectStore) ServiceOption {
	return func(s *Service) { s.store = st }
}

type canvasConfig struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	BackgroundColor string  `json:"backgroundColor"`
}

// Scene builds what the viewer needs to draw d on top of its product.
func Scene(d *models.DesignModel, p *models.ProductModel) (viewer.Scene, error) {
	items, err := decodeElements(d)
	if err != nil {
		return viewer.Scene{}, fmt.Errorf("decode elements of %s: %w", d.ID, err)
	}
	var cc canvasConfig
	if len(d.CanvasConfig) > 0 {
		_ = json.Unmarshal(d.CanvasConfig, &cc)
	}
	size := geom.Size{Width: cc.Width, Height: cc.Height}
	if size.Empty() && p != nil {
		size = geom.Size{Width: p.CanvasWidth, Height: p.CanvasHeight}
	}
	sc := viewer.Scene{
		Canvas:          size,
		BackgroundColor: cc.BackgroundColor,
		ColorFilter:     d.ProductColorFilter,
		Elements:        items,
	}
	if p != nil {
		sc.Background = p.Images.Main
	}
	return sc, nil
}

// Preview returns the PNG of a design, from storage when a fresh render is
// cached there.
func (s *Service) Preview(ctx context.Context, id string, refresh bool) ([]byte, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !refresh && d.PreviewKey != "" && s.store != nil {
		data, err := s.store.Download(ctx, d.PreviewKey)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("download cached preview", zap.String("id", id), zap.Error(err))
		}
	}
	return s.renderAndStore(ctx, d)
}

func (s *Service) renderAndStore(ctx context.Context, d *models.DesignModel) ([]byte, error) {
	p, err := s.product(d.ProductID)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, err
	}
	sc, err := Scene(d, p)
	if err != nil {
		return nil, err
	}
	img, rep, err := s.renderer.Render(ctx, sc)
	if err != nil {
		return nil, err
	}
	if len(rep.Skipped) > 0 || len(rep.Placeholders) > 0 || rep.BackgroundError != "" {
		s.logger.Info("preview rendered with gaps", zap.String("id", d.ID),
			zap.Strings("skipped", rep.Skipped), zap.Strings("placeholders", rep.Placeholders),
			zap.String("backgroundError", rep.BackgroundError))
	}
	var buf bytes.Buffer
	if err := viewer.EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	if s.store != nil {
		key := s.store.Key("designs/" + d.ID + ".png")
		if err := s.store.Upload(ctx, key, "image/png", data); err != nil {
			s.logger.Warn("upload preview", zap.String("id", d.ID), zap.Error(err))
			return data, nil
		}
		if key != d.PreviewKey {
			if err := s.db.Model(d).UpdateColumn("preview_key", key).Error; err != nil {
				s.logger.Warn("record preview key", zap.String("id", d.ID), zap.Error(err))
			}
			d.PreviewKey = key
		}
	}
	return data, nil
}

// PreviewTaskHandler renders and stores a preview from the task queue.
func (s *Service) PreviewTaskHandler() taskqueue.Handler {
	return func(ctx context.Context, task *taskqueue.Task) (any, error) {
		var payload previewPayload
		if err := task.DecodePayload(&payload); err != nil {
			return nil, err
		}
		d, err := s.Get(payload.DesignID)
		if errors.Is(err, ErrNotFound) {
			// Deleted before the worker got to it.
			return map[string]any{"designId": payload.DesignID, "skipped": true}, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := s.renderAndStore(ctx, d)
		if err != nil {
			return nil, err
		}
		return map[string]any{"designId": d.ID, "bytes": len(data), "previewKey": d.PreviewKey}, nil
	}
}
