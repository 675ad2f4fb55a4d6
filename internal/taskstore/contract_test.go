package taskstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

func sampleContext(step int) schemas.TaskContext {
	return schemas.TaskContext{
		TaskID:          "6c1f1c1e-93a8-4f0c-9d0b-1b0f5f1f9a01",
		TaskType:        "agent",
		OriginalCommand: "order a coffee",
		StepIndex:       step,
		UpdatedAt:       time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC),
	}
}

func assertSameContext(t *testing.T, want, got schemas.TaskContext) {
	t.Helper()
	assert.Equal(t, want.TaskID, got.TaskID)
	assert.Equal(t, want.TaskType, got.TaskType)
	assert.Equal(t, want.OriginalCommand, got.OriginalCommand)
	assert.Equal(t, want.StepIndex, got.StepIndex)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at: want %v, got %v", want.UpdatedAt, got.UpdatedAt)
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Empty store", func(t *testing.T) {
		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, schemas.ErrNoTaskContext)
	})

	t.Run("Set then Get", func(t *testing.T) {
		want := sampleContext(3)
		require.NoError(t, store.Set(ctx, want))

		got, err := store.Get(ctx)
		require.NoError(t, err)
		assertSameContext(t, want, got)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		first := sampleContext(4)
		second := sampleContext(5)
		second.TaskID = "second-task"
		second.OriginalCommand = "call mom"
		second.UpdatedAt = second.UpdatedAt.Add(time.Minute)

		require.NoError(t, store.Set(ctx, first))
		require.NoError(t, store.Set(ctx, second))

		got, err := store.Get(ctx)
		require.NoError(t, err)
		assertSameContext(t, second, got)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, sampleContext(1)))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, schemas.ErrNoTaskContext)

		assert.NoError(t, store.Clear(ctx), "Clearing an empty store is not an error")
	})
}
