package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

func TestGenerationJobRepository_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	repo := NewGenerationJobRepository(rdb, time.Hour)

	job := &model.GenerationJob{ID: "abc", ClassName: "9", Count: 5}
	require.NoError(t, repo.Enqueue(ctx, job))
	assert.Equal(t, model.GenerationJobQueued, job.Status)
	assert.True(t, mr.TTL(config.CacheKey.GenerationJobKey("abc")) > 0)

	n, err := repo.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	id, err := repo.Next(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "9", got.ClassName)
	assert.Equal(t, 5, got.Count)

	got.Status = model.GenerationJobFailed
	got.Error = "boom"
	require.NoError(t, repo.Save(ctx, got))

	again, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.GenerationJobFailed, again.Status)
	assert.Equal(t, "boom", again.Error)

	require.NoError(t, repo.Requeue(ctx, id))
	n, err = repo.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGenerationJobRepository_GetMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	_, err := NewGenerationJobRepository(rdb, time.Hour).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
