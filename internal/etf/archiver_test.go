package etf

import (
	"context"
	"errors"
	"testing"

	"github.com/majidtaherkhani/etf-service/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("upload failure stops before logging", func(t *testing.T) {
		logs := &fakeLogStore{}
		a := NewArchiver(&fakeFileStore{err: errors.New("denied")}, logs, nil, logger.Nop())

		err := a.Archive(ctx, []byte("x"), "p.csv")
		require.Error(t, err)
		assert.Empty(t, logs.entries)
	})

	t.Run("log failure is returned", func(t *testing.T) {
		events := &fakePublisher{}
		a := NewArchiver(&fakeFileStore{}, &fakeLogStore{err: errors.New("db down")}, events, logger.Nop())

		err := a.Archive(ctx, []byte("x"), "p.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		assert.Empty(t, events.published)
	})

	t.Run("publish failure is tolerated", func(t *testing.T) {
		logs := &fakeLogStore{}
		a := NewArchiver(&fakeFileStore{}, logs, &fakePublisher{err: errors.New("broker down")}, logger.Nop())

		require.NoError(t, a.Archive(ctx, []byte("x"), "p.csv"))
		assert.Len(t, logs.entries, 1)
	})
}
