package design

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/sublimart/studio/internal/models"
)

func TestSceneUsesProductWhenCanvasUnset(t *testing.T) {
	d := &models.DesignModel{
		Elements:           datatypes.JSON(`[{"id":"a","type":"text","areaId":"front","konvaAttrs":{"text":"x"}}]`),
		ProductColorFilter: "#ff0000",
	}
	p := &models.ProductModel{CanvasWidth: 500, CanvasHeight: 400, Images: models.ProductImages{Main: "https://cdn/mug.png"}}
	sc, err := Scene(d, p)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if sc.Canvas.Width != 500 || sc.Canvas.Height != 400 {
		t.Fatalf("canvas = %+v", sc.Canvas)
	}
	if sc.Background != "https://cdn/mug.png" || sc.ColorFilter != "#ff0000" || len(sc.Elements) != 1 {
		t.Fatalf("scene = %+v", sc)
	}
}

func TestSceneCanvasConfigWins(t *testing.T) {
	d := &models.DesignModel{CanvasConfig: datatypes.JSON(`{"width":300,"height":200,"backgroundColor":"#fff"}`)}
	sc, err := Scene(d, &models.ProductModel{CanvasWidth: 500, CanvasHeight: 400})
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	if sc.Canvas.Width != 300 || sc.BackgroundColor != "#fff" || len(sc.Elements) != 0 {
		t.Fatalf("scene = %+v", sc)
	}
	if _, err := Scene(&models.DesignModel{Elements: datatypes.JSON(`{`)}, nil); err == nil {
		t.Fatalf("corrupt elements should fail")
	}
}
