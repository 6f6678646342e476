package store

import (
	"context"
	"fmt"

	"github.com/amishk599/geolens/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Nothing is persisted, so
// every image is analyzed again and listings are always empty.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Save(ctx context.Context, sample model.Sample) error { return nil }
func (s *NopStore) List(ctx context.Context) ([]model.Sample, error) { return []model.Sample{}, nil }
func (s *NopStore) Delete(ctx context.Context, id string) error { return fmt.Errorf("%w: %s", ErrSampleNotFound, id) }

func (s *NopStore) Get(ctx context.Context, id string) (model.Sample, error) {
	return model.Sample{}, fmt.Errorf("%w: %s", ErrSampleNotFound, id)
}

func (s *NopStore) FindByDigest(ctx context.Context, digest string) (model.Sample, bool, error) {
	return model.Sample{}, false, nil
}
