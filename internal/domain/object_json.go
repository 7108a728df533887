package domain

import (
	"encoding/json"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/geometry"
)

// Записи для JSON. Поле object_type - дискриминант, по нему восстанавливается конкретный тип.
// Встроенные структуры encoding/json разворачивает в плоский объект.

type baseRecord struct {
	ID          string `json:"id"`
	Type        string `json:"object_type"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Layer       int    `json:"layer"`
	Glyph       string `json:"display_char"`
	Size        int    `json:"size"`
	AssetPath   string `json:"asset_path,omitempty"`
	BlocksLight bool   `json:"blocks_light"`
	LightRadius *int   `json:"light_radius,omitempty"`
}

type tokenRecord struct {
	baseRecord
	EntityID string `json:"entity_id"`
	OwnerID  string `json:"owner_id,omitempty"`
}

type drawableRecord struct {
	baseRecord
	StrokeColor string  `json:"stroke_color"`
	StrokeWidth int     `json:"stroke_width"`
	Opacity     float64 `json:"opacity"`
}

type shapeRecord struct {
	drawableRecord
	ShapeType string  `json:"shape_type"`
	FillColor *string `json:"fill_color"`
}

type pathRecord struct {
	drawableRecord
	Points []geometry.Point `json:"points"`
}

type groupRecord struct {
	baseRecord
	ObjectIDs []string `json:"object_ids"`
}

func toBaseRecord(kind ObjectKind, o *MapObject) baseRecord {
	return baseRecord{
		ID:          o.ID,
		Type:        kind.String(),
		X:           o.X,
		Y:           o.Y,
		Layer:       o.Layer,
		Glyph:       o.Glyph,
		Size:        o.Size,
		AssetPath:   o.AssetPath,
		BlocksLight: o.BlocksLight,
		LightRadius: o.LightRadius,
	}
}

func (r baseRecord) toObject() MapObject {
	return MapObject{
		ID:          r.ID,
		X:           r.X,
		Y:           r.Y,
		Layer:       r.Layer,
		Glyph:       r.Glyph,
		Size:        r.Size,
		AssetPath:   r.AssetPath,
		BlocksLight: r.BlocksLight,
		LightRadius: r.LightRadius,
	}
}

func defaultBase() baseRecord {
	return baseRecord{Glyph: DefaultGlyph, Size: DefaultSize}
}

func defaultDrawable() drawableRecord {
	return drawableRecord{
		baseRecord:  defaultBase(),
		StrokeColor: DefaultStrokeColor,
		StrokeWidth: DefaultStrokeWidth,
		Opacity:     DefaultOpacity,
	}
}

func toDrawableRecord(kind ObjectKind, d *Drawable) drawableRecord {
	return drawableRecord{
		baseRecord:  toBaseRecord(kind, &d.MapObject),
		StrokeColor: d.StrokeColor,
		StrokeWidth: d.StrokeWidth,
		Opacity:     d.Opacity,
	}
}

func (r drawableRecord) toDrawable() Drawable {
	return Drawable{
		MapObject:   r.baseRecord.toObject(),
		StrokeColor: r.StrokeColor,
		StrokeWidth: r.StrokeWidth,
		Opacity:     r.Opacity,
	}
}

// MarshalObject сериализует объект любого вида в JSON с object_type.
func MarshalObject(o Object) ([]byte, error) {
	switch v := o.(type) {
	case *Token:
		return json.Marshal(tokenRecord{
			baseRecord: toBaseRecord(KindToken, &v.MapObject),
			EntityID:   v.EntityID,
			OwnerID:    v.OwnerID,
		})
	case *Shape:
		return json.Marshal(shapeRecord{
			drawableRecord: toDrawableRecord(KindShape, &v.Drawable),
			ShapeType:      v.ShapeType.String(),
			FillColor:      v.FillColor,
		})
	case *Path:
		return json.Marshal(pathRecord{
			drawableRecord: toDrawableRecord(KindPath, &v.Drawable),
			Points:         v.Points,
		})
	case *Group:
		return json.Marshal(groupRecord{
			baseRecord: toBaseRecord(KindGroup, &v.MapObject),
			ObjectIDs:  v.Members,
		})
	case *MapObject:
		return json.Marshal(toBaseRecord(KindObject, v))
	default:
		return nil, apperr.Invalid("unsupported object type %T", o)
	}
}

// UnmarshalObject восстанавливает объект по object_type.
// Отсутствующие поля получают значения по умолчанию.
func UnmarshalObject(data []byte) (Object, error) {
	var probe struct {
		Type string `json:"object_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedMessage, err, "cannot decode map object")
	}

	var (
		obj Object
		err error
	)
	switch ParseObjectKind(probe.Type) {
	case KindObject:
		rec := defaultBase()
		if err = json.Unmarshal(data, &rec); err == nil {
			o := rec.toObject()
			obj = &o
		}
	case KindToken:
		rec := tokenRecord{baseRecord: defaultBase()}
		rec.Layer = DefaultTokenLayer
		if err = json.Unmarshal(data, &rec); err == nil {
			if rec.EntityID == "" {
				return nil, apperr.Invalid("token '%s' has no entity_id", rec.ID)
			}
			obj = &Token{MapObject: rec.toObject(), EntityID: rec.EntityID, OwnerID: rec.OwnerID}
		}
	case KindShape:
		rec := shapeRecord{drawableRecord: defaultDrawable(), ShapeType: ShapeCircle.String()}
		if err = json.Unmarshal(data, &rec); err == nil {
			st, perr := ParseShapeType(rec.ShapeType)
			if perr != nil {
				return nil, perr
			}
			obj = &Shape{Drawable: rec.toDrawable(), ShapeType: st, FillColor: rec.FillColor}
		}
	case KindPath:
		rec := pathRecord{drawableRecord: defaultDrawable()}
		if err = json.Unmarshal(data, &rec); err == nil {
			obj = &Path{Drawable: rec.toDrawable(), Points: rec.Points}
		}
	case KindGroup:
		rec := groupRecord{baseRecord: defaultBase()}
		if err = json.Unmarshal(data, &rec); err == nil {
			obj = &Group{MapObject: rec.toObject(), Members: rec.ObjectIDs}
		}
	default:
		return nil, apperr.Invalid("unknown object_type '%s'", probe.Type)
	}

	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedMessage, err, "cannot decode %s", probe.Type)
	}
	if obj.Base().ID == "" {
		return nil, apperr.Invalid("%s without id", probe.Type)
	}
	return obj, nil
}
