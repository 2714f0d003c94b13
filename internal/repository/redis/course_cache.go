package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/classify/catalog/internal/domain"
	"github.com/classify/catalog/internal/repository"
)

const (
	keyPrefix = "catalog:course:"

	// Generation counters bumped by every eviction. They live outside
	// keyPrefix so DeleteAll never removes them.
	genPrefix = "catalog:course-gen:"
	genAll    = "catalog:course-gen"
)

// fillScript writes ARGV[3] to KEYS[1] only while the per-course and
// catalog-wide generations still equal ARGV[1] and ARGV[2].
var fillScript = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "") ~= ARGV[1] or (redis.call("GET", KEYS[3]) or "") ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[4]) > 0 then
	redis.call("SET", KEYS[1], ARGV[3], "PX", ARGV[4])
else
	redis.call("SET", KEYS[1], ARGV[3])
end
return 1
`)

// Cache lookup outcomes.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// CourseCache is a read-through cache over another CourseRepository.
// GetByCode is served from Redis when possible; every mutation goes to the
// underlying repository first and then evicts the cached entry. A load that
// raced with an eviction is not written back. Redis failures are logged and
// never fail a request.
type CourseCache struct {
	next    repository.CourseRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	lookups *prometheus.CounterVec
}

// NewCourseCache wraps next with a Redis cache whose entries expire after ttl.
func NewCourseCache(next repository.CourseRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CourseCache {
	return &CourseCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_course_cache_lookups_total",
			Help: "Course cache lookups by result",
		}, []string{"result"}),
	}
}

// Describe implements prometheus.Collector.
func (c *CourseCache) Describe(ch chan<- *prometheus.Desc) {
	c.lookups.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *CourseCache) Collect(ch chan<- prometheus.Metric) {
	c.lookups.Collect(ch)
}

func key(code domain.CourseCode) string {
	return keyPrefix + code.String()
}

func genKey(code domain.CourseCode) string {
	return genPrefix + code.String()
}

// Create writes through to the underlying repository.
func (c *CourseCache) Create(ctx context.Context, course *domain.Course) error {
	if err := c.next.Create(ctx, course); err != nil {
		return err
	}
	c.evict(ctx, course.Code)
	return nil
}

// GetByCode returns the cached course or loads and caches it.
func (c *CourseCache) GetByCode(ctx context.Context, code domain.CourseCode) (*domain.Course, error) {
	data, err := c.client.Get(ctx, key(code)).Bytes()
	switch {
	case err == nil:
		var course domain.Course
		if jsonErr := json.Unmarshal(data, &course); jsonErr == nil {
			c.lookups.WithLabelValues(resultHit).Inc()
			return &course, nil
		}
		c.lookups.WithLabelValues(resultError).Inc()
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("course_code", code.String()))
	case errors.Is(err, redis.Nil):
		c.lookups.WithLabelValues(resultMiss).Inc()
	default:
		c.lookups.WithLabelValues(resultError).Inc()
		c.logger.WarnContext(ctx, "course cache read failed",
			slog.String("course_code", code.String()),
			slog.String("error", err.Error()),
		)
	}

	gens, genErr := c.generations(ctx, code)
	course, err := c.next.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		c.store(ctx, course, gens)
	}
	return course, nil
}

// List is always served by the underlying repository.
func (c *CourseCache) List(ctx context.Context) ([]*domain.Course, error) {
	return c.next.List(ctx)
}

// AppendReview appends through and evicts.
func (c *CourseCache) AppendReview(ctx context.Context, code domain.CourseCode, review domain.Review, at time.Time) (*domain.Course, error) {
	course, err := c.next.AppendReview(ctx, code, review, at)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, code)
	return course, nil
}

// ReplaceProfessors replaces through and evicts.
func (c *CourseCache) ReplaceProfessors(ctx context.Context, code domain.CourseCode, professors []string, at time.Time) (*domain.Course, error) {
	course, err := c.next.ReplaceProfessors(ctx, code, professors, at)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, code)
	return course, nil
}

// AddProfessor adds through and evicts when the roster changed.
func (c *CourseCache) AddProfessor(ctx context.Context, code domain.CourseCode, name string, at time.Time) (*domain.Course, bool, error) {
	course, added, err := c.next.AddProfessor(ctx, code, name, at)
	if err != nil {
		return nil, false, err
	}
	if added {
		c.evict(ctx, code)
	}
	return course, added, nil
}

// Delete deletes through and evicts.
func (c *CourseCache) Delete(ctx context.Context, code domain.CourseCode) error {
	if err := c.next.Delete(ctx, code); err != nil {
		return err
	}
	c.evict(ctx, code)
	return nil
}

// DeleteAll deletes through and evicts every cached course.
func (c *CourseCache) DeleteAll(ctx context.Context) (int, error) {
	n, err := c.next.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	if err := c.client.Incr(ctx, genAll).Err(); err != nil {
		c.logger.WarnContext(ctx, "course cache generation bump failed", slog.String("error", err.Error()))
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "course cache scan failed", slog.String("error", err.Error()))
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.WarnContext(ctx, "course cache flush failed", slog.String("error", err.Error()))
		}
	}
	return n, nil
}

// Ping checks the underlying repository. Cache health is reported separately.
func (c *CourseCache) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// generations reads the per-course and catalog-wide eviction counters.
// Missing counters read as "".
func (c *CourseCache) generations(ctx context.Context, code domain.CourseCode) ([2]string, error) {
	var gens [2]string
	vals, err := c.client.MGet(ctx, genKey(code), genAll).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "course cache generation read failed",
			slog.String("course_code", code.String()),
			slog.String("error", err.Error()),
		)
		return gens, err
	}
	for i, v := range vals {
		if g, ok := v.(string); ok && i < len(gens) {
			gens[i] = g
		}
	}
	return gens, nil
}

// store caches course unless it was evicted after gens were read.
func (c *CourseCache) store(ctx context.Context, course *domain.Course, gens [2]string) {
	data, err := json.Marshal(course)
	if err != nil {
		c.logger.WarnContext(ctx, "course cache encode failed", slog.String("error", err.Error()))
		return
	}
	keys := []string{key(course.Code), genKey(course.Code), genAll}
	stored, err := fillScript.Run(ctx, c.client, keys, gens[0], gens[1], data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.WarnContext(ctx, "course cache write failed",
			slog.String("course_code", course.Code.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if stored == 0 {
		c.logger.DebugContext(ctx, "course cache fill skipped after concurrent write",
			slog.String("course_code", course.Code.String()),
		)
	}
}

func (c *CourseCache) evict(ctx context.Context, code domain.CourseCode) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(code))
		pipe.Del(ctx, key(code))
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "course cache evict failed",
			slog.String("course_code", code.String()),
			slog.String("error", err.Error()),
		)
	}
}
