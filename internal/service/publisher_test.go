package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"maptimes/internal/domain"
	"maptimes/internal/service/mocks"
)

func TestPublisherResolver_EmptyName(t *testing.T) {
	ctrl := gomock.NewController(t)
	publishers := mocks.NewMockPublisherStore(ctrl)

	id, err := NewPublisherResolver(publishers).Resolve(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestPublisherResolver_Existing(t *testing.T) {
	ctrl := gomock.NewController(t)
	publishers := mocks.NewMockPublisherStore(ctrl)
	ctx := context.Background()

	publishers.EXPECT().FindByName(ctx, "Der Spiegel").Return(int64(7), nil)

	id, err := NewPublisherResolver(publishers).Resolve(ctx, "Der Spiegel", 1)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)
}

func TestPublisherResolver_CreatesOnFirstSight(t *testing.T) {
	ctrl := gomock.NewController(t)
	publishers := mocks.NewMockPublisherStore(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		publishers.EXPECT().FindByName(ctx, "Le Monde").Return(int64(0), domain.ErrNotFound),
		publishers.EXPECT().Create(ctx, "Le Monde", int64(3)).Return(int64(12), nil),
	)

	id, err := NewPublisherResolver(publishers).Resolve(ctx, "Le Monde", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), *id)
}

func TestPublisherResolver_ConflictRequeries(t *testing.T) {
	ctrl := gomock.NewController(t)
	publishers := mocks.NewMockPublisherStore(ctrl)
	ctx := context.Background()

	conflict := fmt.Errorf("%w: publishers_name_key", domain.ErrConflict)
	gomock.InOrder(
		publishers.EXPECT().FindByName(ctx, "taz").Return(int64(0), domain.ErrNotFound),
		publishers.EXPECT().Create(ctx, "taz", int64(1)).Return(int64(0), conflict),
		publishers.EXPECT().FindByName(ctx, "taz").Return(int64(4), nil),
	)

	id, err := NewPublisherResolver(publishers).Resolve(ctx, "taz", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), *id)
}

func TestPublisherResolver_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	publishers := mocks.NewMockPublisherStore(ctrl)
	ctx := context.Background()

	publishers.EXPECT().FindByName(ctx, "taz").Return(int64(0), errors.New("pool exhausted"))

	id, err := NewPublisherResolver(publishers).Resolve(ctx, "taz", 1)
	require.Error(t, err)
	assert.Nil(t, id)
}
