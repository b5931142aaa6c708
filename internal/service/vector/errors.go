package vector

import (
	"errors"
	"fmt"

	"github.com/armchr/imagesearch/internal/model"
)

var (
	// ErrUnsupportedInputKind signals an object that is neither text nor image
	ErrUnsupportedInputKind = model.ErrUnsupportedInputKind
	// ErrCollectionMismatch signals a reused collection whose vector config disagrees with the embedder
	ErrCollectionMismatch = errors.New("collection mismatch")
	// ErrPayloadDecode signals a stored payload without exactly one of the text/pixels keys
	ErrPayloadDecode = errors.New("payload decode failure")
	// ErrRemoteService signals a failed call to the vector database or embedding service
	ErrRemoteService = errors.New("remote service failure")
	// ErrDimensionMismatch signals an embedding whose length differs from the model dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// CollectionMismatchError describes how an existing collection differs from the embedder
type CollectionMismatchError struct {
	Collection       string
	ExpectedDim      int
	ActualDim        int
	ExpectedDistance DistanceMetric
	ActualDistance   DistanceMetric
}

func (e *CollectionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection %q has size %d/%s, embedder produces %d/%s",
		ErrCollectionMismatch.Error(), e.Collection,
		e.ActualDim, e.ActualDistance, e.ExpectedDim, e.ExpectedDistance)
}

func (e *CollectionMismatchError) Unwrap() error { return ErrCollectionMismatch }

func remoteError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrRemoteService, err)
}
