package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/testutil"
)

func TestCounterRepository_GetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCounterRepository(db)

	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	counter, err := repo.GetOrCreate(db, "u1", model.CounterDaily, now)
	require.NoError(t, err)
	assert.Equal(t, 0, counter.ChatUsed)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), counter.ResetDate)

	// 二次调用返回已有行
	again, err := repo.GetOrCreate(db, "u1", model.CounterDaily, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, counter.ID, again.ID)
}

func TestCounterRepository_Increment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCounterRepository(db)

	testutil.TestCounter(t, db, "u1", model.CounterDaily, 0, time.Now().UTC().AddDate(0, 0, 1))

	require.NoError(t, repo.Increment(db, "u1", model.CounterDaily, 1, 0))
	require.NoError(t, repo.Increment(db, "u1", model.CounterDaily, 1, 2))

	counter, err := repo.GetBySubAndType("u1", model.CounterDaily)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, 2, counter.ChatUsed)
	assert.Equal(t, 2, counter.TemplateUsed)
}

func TestCounterRepository_ListDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCounterRepository(db)

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	testutil.TestCounter(t, db, "u1", model.CounterDaily, 5, now.AddDate(0, 0, -1))
	testutil.TestCounter(t, db, "u2", model.CounterDaily, 3, now.AddDate(0, 0, 1))

	due, err := repo.ListDue(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "u1", due[0].Sub)
}

func TestCounterRepository_Reset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCounterRepository(db)

	boundary := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	counter := testutil.TestCounter(t, db, "u1", model.CounterDaily, 7, boundary)

	next := boundary.AddDate(0, 0, 1)
	ok, err := repo.Reset(db, counter.ID, boundary, next)
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := repo.GetBySubAndType("u1", model.CounterDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.ChatUsed)
	assert.True(t, next.Equal(updated.ResetDate))
}

func TestCounterRepository_Reset_StaleBoundary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCounterRepository(db)

	boundary := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	counter := testutil.TestCounter(t, db, "u1", model.CounterDaily, 7, boundary)

	// 期望边界不匹配（别处已推进）时不生效
	stale := boundary.AddDate(0, 0, -1)
	ok, err := repo.Reset(db, counter.ID, stale, boundary.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	untouched, err := repo.GetBySubAndType("u1", model.CounterDaily)
	require.NoError(t, err)
	assert.Equal(t, 7, untouched.ChatUsed)
}
