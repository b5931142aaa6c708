package model

import (
	"errors"
	"fmt"
	"image"
)

// ErrUnsupportedInputKind is returned for objects that are neither text nor image
var ErrUnsupportedInputKind = errors.New("unsupported input kind")

// ObjectKind tags the variant held by an Object
type ObjectKind int

const (
	// KindUnknown is the zero value and is never accepted by the embedder
	KindUnknown ObjectKind = iota
	// KindText marks a UTF-8 text object
	KindText
	// KindImage marks a decoded raster image object
	KindImage
)

func (k ObjectKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Object is the unit that gets embedded, stored and queried.
// Exactly one of Text or Image is meaningful, selected by Kind.
type Object struct {
	Kind  ObjectKind
	Text  string
	Image image.Image
}

// NewText wraps a string as a text object
func NewText(text string) Object {
	return Object{Kind: KindText, Text: text}
}

// NewImage wraps a decoded image as an image object
func NewImage(img image.Image) Object {
	return Object{Kind: KindImage, Image: img}
}

// Texts wraps each string as a text object
func Texts(texts ...string) []Object {
	objs := make([]Object, len(texts))
	for i, text := range texts {
		objs[i] = NewText(text)
	}
	return objs
}

// IsValid reports whether the object carries a supported variant
func (o Object) IsValid() bool {
	switch o.Kind {
	case KindText:
		return true
	case KindImage:
		return o.Image != nil
	default:
		return false
	}
}

// KindGroups is the result of partitioning objects by kind.
// TextIndices[i] is the original position of Texts[i], and likewise for images.
type KindGroups struct {
	Texts        []string
	TextIndices  []int
	Images       []image.Image
	ImageIndices []int
}

// GroupByKind partitions objects by kind while recording the original index of
// each element. The first object that is neither text nor image is reported
// with its index.
func GroupByKind(objs []Object) (KindGroups, error) {
	var groups KindGroups
	for i, obj := range objs {
		if !obj.IsValid() {
			err := &UnsupportedKindError{Index: i, Kind: obj.Kind}
			if obj.Kind == KindImage {
				err.Reason = "nil image"
			}
			return KindGroups{}, err
		}
		if obj.Kind == KindText {
			groups.Texts = append(groups.Texts, obj.Text)
			groups.TextIndices = append(groups.TextIndices, i)
		} else {
			groups.Images = append(groups.Images, obj.Image)
			groups.ImageIndices = append(groups.ImageIndices, i)
		}
	}
	return groups, nil
}

// UnsupportedKindError reports an object that cannot be embedded
type UnsupportedKindError struct {
	Index  int
	Kind   ObjectKind
	Reason string
}

func (e *UnsupportedKindError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("object %d has unsupported kind %s: %s", e.Index, e.Kind, e.Reason)
	}
	return fmt.Sprintf("object %d has unsupported kind %s", e.Index, e.Kind)
}

func (e *UnsupportedKindError) Unwrap() error { return ErrUnsupportedInputKind }
