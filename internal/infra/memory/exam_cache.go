package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"exam-arena/internal/domain"
)

// ExamLoader fetches exam content from a backing store.
type ExamLoader interface {
	LoadExam(ctx context.Context, examID string) (domain.Exam, error)
}

// ExamCache caches exams with TTL so repeated student joins do not hammer
// the backing store. Concurrent misses for the same exam collapse into one
// load.
type ExamCache struct {
	loader ExamLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedExam
}

type cachedExam struct {
	exam      domain.Exam
	expiresAt time.Time
}

func NewExamCache(loader ExamLoader, ttl time.Duration) *ExamCache {
	return &ExamCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExam),
	}
}

func (c *ExamCache) GetExam(ctx context.Context, examID string) (domain.Exam, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[examID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.exam, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[examID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.exam, nil
		}
		c.mu.RUnlock()

		exam, err := c.loader.LoadExam(ctx, examID)
		if err != nil {
			return domain.Exam{}, err
		}

		c.mu.Lock()
		c.cache[examID] = cachedExam{
			exam:      exam,
			expiresAt: now.Add(ttlWithJitter(c.rnd, c.ttl)),
		}
		c.mu.Unlock()
		return exam, nil
	})
	if err != nil {
		return domain.Exam{}, err
	}
	return result.(domain.Exam), nil
}

// Invalidate drops one exam so the next read reloads it; call after edits.
func (c *ExamCache) Invalidate(examID string) {
	c.mu.Lock()
	delete(c.cache, examID)
	c.mu.Unlock()
}

func ttlWithJitter(rnd *rand.Rand, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(rnd.Int63n(jitterMax+1))
}

// ExamListCache caches the full exam list behind one TTL entry. The
// teacher reads the list on every student join to build the welcome
// snapshot; without the cache each join is a round trip to the store.
// Concurrent misses collapse into one load.
type ExamListCache struct {
	source func() ([]domain.Exam, error)
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	exams     []domain.Exam
	expiresAt time.Time
}

func NewExamListCache(source func() ([]domain.Exam, error), ttl time.Duration) *ExamListCache {
	return &ExamListCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Exams returns the cached list, reloading from the source when the entry
// has expired or was invalidated.
func (c *ExamListCache) Exams() ([]domain.Exam, error) {
	now := c.clock()

	c.mu.RLock()
	if c.expiresAt.After(now) {
		exams := c.exams
		c.mu.RUnlock()
		return exams, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("exams", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.expiresAt.After(now) {
			exams := c.exams
			c.mu.RUnlock()
			return exams, nil
		}
		c.mu.RUnlock()

		exams, err := c.source()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.exams = exams
		c.expiresAt = now.Add(ttlWithJitter(c.rnd, c.ttl))
		c.mu.Unlock()
		return exams, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.([]domain.Exam), nil
}

// Invalidate expires the cached list so the next read reloads it; call
// after any exam mutation that students must see immediately.
func (c *ExamListCache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// StoreExamLoader adapts any app.Store-shaped exam lister into an
// ExamLoader.
type StoreExamLoader struct {
	Exams func() ([]domain.Exam, error)
}

func (l StoreExamLoader) LoadExam(_ context.Context, examID string) (domain.Exam, error) {
	exams, err := l.Exams()
	if err != nil {
		return domain.Exam{}, err
	}
	for _, exam := range exams {
		if exam.ID == examID {
			return exam, nil
		}
	}
	return domain.Exam{}, domain.ErrExamNotFound
}
