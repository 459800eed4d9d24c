package design

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sublimart/studio/internal/canvas/element"
)

func dump(t *testing.T, docs ...any) []byte {
	t.Helper()
	var out []byte
	for _, d := range docs {
		b, err := bson.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		out = append(out, b...)
	}
	return out
}

func TestSplitDump(t *testing.T) {
	payload := dump(t, bson.M{"name": "a"}, bson.M{"name": "b"})
	docs, err := splitDump(payload)
	if err != nil || len(docs) != 2 {
		t.Fatalf("split: %d docs, %v", len(docs), err)
	}
	if _, err := splitDump(payload[:len(payload)-3]); !errors.Is(err, ErrInvalidDump) {
		t.Fatalf("truncated dump should fail, got %v", err)
	}
	if docs, err := splitDump(nil); err != nil || len(docs) != 0 {
		t.Fatalf("empty dump: %v %v", docs, err)
	}
}

func TestLegacyDocumentDecoding(t *testing.T) {
	oid := primitive.NewObjectID()
	raw := dump(t, bson.M{
		"_id":     oid,
		"name":    "Taza de Ana",
		"product": "p1",
		"elements": bson.A{
			bson.M{"id": "t1", "type": "text", "areaId": "front", "konvaAttrs": bson.M{
				"x": int32(10), "y": 20.5, "text": "Hola", "fontSize": int64(30),
			}},
		},
		"canvasConfig": bson.M{"width": 800, "height": 600},
	})
	var doc legacyDesign
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if idString(doc.ID) != oid.Hex() || idString(doc.Product) != "p1" || idString(doc.User) != "" {
		t.Fatalf("ids: %q %q %q", idString(doc.ID), idString(doc.Product), idString(doc.User))
	}

	var items []element.BackendElement
	if err := rawToJSON(doc.Elements, &items); err != nil {
		t.Fatalf("elements: %v", err)
	}
	el, err := element.FromBackend(items[0])
	if err != nil {
		t.Fatalf("from backend: %v", err)
	}
	text := el.(*element.Text)
	if text.X != 10 || text.Y != 20.5 || text.FontSize != 30 || text.Text != "Hola" {
		t.Fatalf("decoded text %+v", text)
	}
	if got := string(rawColumn(doc.CanvasConfig)); got != `{"height":600,"width":800}` {
		t.Fatalf("canvas config = %s", got)
	}
	if got := string(rawColumn(doc.Metadata)); got != "{}" {
		t.Fatalf("missing metadata = %s", got)
	}
}
