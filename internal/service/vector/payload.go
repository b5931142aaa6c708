package vector

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/armchr/imagesearch/internal/model"
	"github.com/armchr/imagesearch/internal/util"
)

// Payload keys; a stored payload carries exactly one of them
const (
	PayloadKeyText   = "text"
	PayloadKeyPixels = "pixels"
)

// Candidate is one query hit, unwrapped from its stored payload.
// Text is set for text hits and Pixels (PNG bytes) for image hits.
type Candidate struct {
	Kind   model.ObjectKind
	Text   string
	Pixels []byte
	Score  float32
}

// Image decodes the pixels of an image candidate
func (c Candidate) Image() (image.Image, error) {
	if c.Kind != model.KindImage {
		return nil, fmt.Errorf("candidate is %s, not image", c.Kind)
	}
	img, err := png.Decode(bytes.NewReader(c.Pixels))
	if err != nil {
		return nil, fmt.Errorf("failed to decode candidate pixels: %w", err)
	}
	return img, nil
}

// encodePayload builds the stored payload for an object. Images are reduced
// to fit thumbnail before PNG encoding; Qdrant payloads hold no raw bytes, so
// the PNG travels base64-encoded.
func encodePayload(obj model.Object, thumbnail util.Size) (Payload, error) {
	switch obj.Kind {
	case model.KindText:
		return Payload{PayloadKeyText: obj.Text}, nil
	case model.KindImage:
		if obj.Image == nil {
			return nil, fmt.Errorf("nil image: %w", ErrUnsupportedInputKind)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, util.Thumbnail(obj.Image, thumbnail)); err != nil {
			return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
		}
		return Payload{PayloadKeyPixels: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
	default:
		return nil, fmt.Errorf("cannot build payload for %s: %w", obj.Kind, ErrUnsupportedInputKind)
	}
}

// decodePayload recovers the original text or the thumbnail PNG bytes
func decodePayload(p Payload) (Candidate, error) {
	text, hasText := p[PayloadKeyText]
	pixels, hasPixels := p[PayloadKeyPixels]

	switch {
	case hasText && hasPixels:
		return Candidate{}, fmt.Errorf("payload has both %q and %q: %w", PayloadKeyText, PayloadKeyPixels, ErrPayloadDecode)
	case hasText:
		return Candidate{Kind: model.KindText, Text: text}, nil
	case hasPixels:
		raw, err := base64.StdEncoding.DecodeString(pixels)
		if err != nil {
			return Candidate{}, fmt.Errorf("invalid pixels encoding: %w: %w", ErrPayloadDecode, err)
		}
		return Candidate{Kind: model.KindImage, Pixels: raw}, nil
	default:
		return Candidate{}, fmt.Errorf("payload has neither %q nor %q: %w", PayloadKeyText, PayloadKeyPixels, ErrPayloadDecode)
	}
}
