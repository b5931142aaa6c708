package model

import (
	"errors"
	"image"
	"testing"
)

func TestObject_IsValid(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	tests := []struct {
		name string
		obj  Object
		want bool
	}{
		{"text", NewText("a cat"), true},
		{"empty text", NewText(""), true},
		{"image", NewImage(img), true},
		{"nil image", NewImage(nil), false},
		{"zero value", Object{}, false},
		{"unknown kind", Object{Kind: ObjectKind(9), Text: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupByKind(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))

	groups, err := GroupByKind([]Object{NewImage(a), NewText("x"), NewImage(b), NewText("y")})
	if err != nil {
		t.Fatalf("GroupByKind() error = %v", err)
	}

	if len(groups.Texts) != 2 || groups.Texts[0] != "x" || groups.Texts[1] != "y" {
		t.Errorf("Texts = %v", groups.Texts)
	}
	if want := []int{1, 3}; !equalInts(groups.TextIndices, want) {
		t.Errorf("TextIndices = %v, want %v", groups.TextIndices, want)
	}
	if len(groups.Images) != 2 || groups.Images[0] != a || groups.Images[1] != b {
		t.Errorf("Images not in input order")
	}
	if want := []int{0, 2}; !equalInts(groups.ImageIndices, want) {
		t.Errorf("ImageIndices = %v, want %v", groups.ImageIndices, want)
	}
}

func TestGroupByKind_Invalid(t *testing.T) {
	_, err := GroupByKind([]Object{NewText("ok"), NewImage(nil)})

	var kindErr *UnsupportedKindError
	if !errors.As(err, &kindErr) {
		t.Fatalf("Expected UnsupportedKindError, got %v", err)
	}
	if kindErr.Index != 1 || kindErr.Reason != "nil image" {
		t.Errorf("UnsupportedKindError = %+v", kindErr)
	}
	if !errors.Is(err, ErrUnsupportedInputKind) {
		t.Errorf("Expected error to wrap ErrUnsupportedInputKind")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
