package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/repository"
	"github.com/classify/catalog/internal/repository/memory"
	apperrors "github.com/classify/catalog/pkg/errors"
	"github.com/classify/catalog/pkg/logger"
)

var _ repository.CourseRepository = (*CourseCache)(nil)

// countingRepo counts GetByCode calls that reach the backing store.
type countingRepo struct {
	*memory.CourseRepository
	gets int
}

func (r *countingRepo) GetByCode(ctx context.Context, code domain.CourseCode) (*domain.Course, error) {
	r.gets++
	return r.CourseRepository.GetByCode(ctx, code)
}

// pausingRepo holds the first GetByCode after it has loaded until resume is
// closed, letting a writer run between the load and the cache fill.
type pausingRepo struct {
	*memory.CourseRepository
	loaded chan struct{}
	resume chan struct{}
	once   sync.Once
}

func (r *pausingRepo) GetByCode(ctx context.Context, code domain.CourseCode) (*domain.Course, error) {
	c, err := r.CourseRepository.GetByCode(ctx, code)
	r.once.Do(func() {
		close(r.loaded)
		<-r.resume
	})
	return c, err
}

func setup(t *testing.T) (*CourseCache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingRepo{CourseRepository: memory.NewCourseRepository()}
	cache := NewCourseCache(backing, client, time.Minute, logger.Discard())
	return cache, backing, mr
}

func sampleCourse(code string) *domain.Course {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Course{
		Code:          domain.CourseCode(code),
		Level:         domain.LevelGraduate,
		Name:          "Advanced Algorithms",
		Department:    "Computer Science",
		Credits:       3,
		Description:   "desc",
		Prerequisites: []domain.CourseCode{"CS1501"},
		Professors:    []string{"Kosiyatrakul"},
		Usefulness:    domain.Usefulness{RequiredForHint: []domain.CourseCode{}},
		Reviews:       []domain.Review{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCourseCache_GetByCode_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, backing, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))

	first, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"CS2150"))

	second, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, first, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(cache.lookups.WithLabelValues(resultMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(cache.lookups.WithLabelValues(resultHit)))
}

func TestCourseCache_GetByCode_SetsTTL(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))

	_, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"CS2150"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(keyPrefix+"CS2150"))
}

func TestCourseCache_GetByCode_NotFoundNotCached(t *testing.T) {
	cache, _, mr := setup(t)

	_, err := cache.GetByCode(context.Background(), "ZZ9999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.False(t, mr.Exists(keyPrefix+"ZZ9999"))
}

func TestCourseCache_AppendReview_Evicts(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))
	_, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)

	_, err = cache.AppendReview(ctx, "CS2150", domain.Review{ID: "r1", Professor: "Kosiyatrakul"}, time.Now())
	require.NoError(t, err)
	assert.False(t, mr.Exists(keyPrefix+"CS2150"))

	got, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 1)
}

func TestCourseCache_ReplaceProfessors_Evicts(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))
	_, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)

	_, err = cache.ReplaceProfessors(ctx, "CS2150", []string{"X"}, time.Now())
	require.NoError(t, err)
	assert.False(t, mr.Exists(keyPrefix+"CS2150"))

	got, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, got.Professors)
}

func TestCourseCache_AddProfessor_NoChangeKeepsEntry(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))
	_, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)

	_, added, err := cache.AddProfessor(ctx, "CS2150", "kosiyatrakul", time.Now())
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, mr.Exists(keyPrefix+"CS2150"))

	_, added, err = cache.AddProfessor(ctx, "CS2150", "Misurda", time.Now())
	require.NoError(t, err)
	assert.True(t, added)
	assert.False(t, mr.Exists(keyPrefix+"CS2150"))
}

func TestCourseCache_DeleteAll_FlushesPrefix(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	for _, code := range []string{"CS0401", "CS0445"} {
		require.NoError(t, cache.Create(ctx, sampleCourse(code)))
		_, err := cache.GetByCode(ctx, domain.CourseCode(code))
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	n, err := cache.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists(keyPrefix+"CS0401"))
	assert.False(t, mr.Exists(keyPrefix+"CS0445"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestCourseCache_Delete_Evicts(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))
	_, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, "CS2150"))
	assert.False(t, mr.Exists(keyPrefix+"CS2150"))

	_, err = cache.GetByCode(ctx, "CS2150")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCourseCache_RedisDown_FallsThrough(t *testing.T) {
	ctx := context.Background()
	cache, backing, mr := setup(t)
	require.NoError(t, backing.Create(ctx, sampleCourse("CS2150")))
	mr.Close()

	got, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Equal(t, domain.CourseCode("CS2150"), got.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(cache.lookups.WithLabelValues(resultError)))

	_, err = cache.AppendReview(ctx, "CS2150", domain.Review{ID: "r1"}, time.Now())
	assert.NoError(t, err)
}

func TestCourseCache_CorruptEntryIsReloaded(t *testing.T) {
	ctx := context.Background()
	cache, backing, mr := setup(t)
	require.NoError(t, backing.Create(ctx, sampleCourse("CS2150")))
	require.NoError(t, mr.Set(keyPrefix+"CS2150", "{not json"))

	got, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Equal(t, "Advanced Algorithms", got.Name)
	assert.Equal(t, 1, backing.gets)
}

func TestCourseCache_GetByCode_ConcurrentAppendNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &pausingRepo{
		CourseRepository: memory.NewCourseRepository(),
		loaded:           make(chan struct{}),
		resume:           make(chan struct{}),
	}
	require.NoError(t, backing.Create(ctx, sampleCourse("CS2150")))
	cache := NewCourseCache(backing, client, time.Minute, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetByCode(ctx, "CS2150")
		done <- err
	}()

	<-backing.loaded
	_, err := cache.AppendReview(ctx, "CS2150", domain.Review{ID: "r1", Professor: "Kosiyatrakul"}, time.Now())
	require.NoError(t, err)
	close(backing.resume)
	require.NoError(t, <-done)

	assert.False(t, mr.Exists(keyPrefix+"CS2150"))
	got, err := cache.GetByCode(ctx, "CS2150")
	require.NoError(t, err)
	assert.Len(t, got.Reviews, 1)
	assert.True(t, mr.Exists(keyPrefix+"CS2150"))
}

func TestCourseCache_GetByCode_ConcurrentDeleteAllNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &pausingRepo{
		CourseRepository: memory.NewCourseRepository(),
		loaded:           make(chan struct{}),
		resume:           make(chan struct{}),
	}
	require.NoError(t, backing.Create(ctx, sampleCourse("CS2150")))
	cache := NewCourseCache(backing, client, time.Minute, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetByCode(ctx, "CS2150")
		done <- err
	}()

	<-backing.loaded
	_, err := cache.DeleteAll(ctx)
	require.NoError(t, err)
	close(backing.resume)
	require.NoError(t, <-done)

	assert.False(t, mr.Exists(keyPrefix+"CS2150"))
	_, err = cache.GetByCode(ctx, "CS2150")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCourseCache_DeleteAll_KeepsGenerations(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setup(t)
	require.NoError(t, cache.Create(ctx, sampleCourse("CS2150")))

	_, err := cache.DeleteAll(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(genKey("CS2150")))
	assert.True(t, mr.Exists(genAll))
}
