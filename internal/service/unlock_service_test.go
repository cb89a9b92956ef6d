package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"
	"opencourse_backend/internal/repository"
	"opencourse_backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 数据库账本必须满足解锁服务的接口，缺方法在编译期暴露
var _ service.UnlockLedger = (*repository.UnlockRepository)(nil)

// =============================================================================
// IN-MEMORY FAKES
// =============================================================================

var unlockNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixtureCourses struct {
	course *model.Course
}

func (f *fixtureCourses) CourseForTarget(_ context.Context, target access.Target) (*model.Course, error) {
	if _, ok := access.TargetReleaseAt(f.course, target); !ok {
		return nil, access.ErrTargetNotFound
	}
	return f.course, nil
}

// memoryLedger 以互斥锁复刻仓储层的事务语义：
// 同目标幂等、条件扣费、余额永不为负。
type memoryLedger struct {
	mu        sync.Mutex
	balance   int
	chapters  map[uint]*model.EarlyUnlock
	lessons   map[uint]*model.EarlyUnlock
	completed map[uint]bool
	submitted map[uint]bool
}

func newMemoryLedger(balance int) *memoryLedger {
	return &memoryLedger{
		balance:   balance,
		chapters:  map[uint]*model.EarlyUnlock{},
		lessons:   map[uint]*model.EarlyUnlock{},
		completed: map[uint]bool{},
		submitted: map[uint]bool{},
	}
}

func (m *memoryLedger) Balance(_ context.Context, _ uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *memoryLedger) ApplyUnlock(_ context.Context, userID uint, target access.Target, price int, now time.Time) (*model.EarlyUnlock, int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store := m.chapters
	if target.Kind() == access.TargetLesson {
		store = m.lessons
	}

	if existing, ok := store[target.ID()]; ok {
		return existing, m.balance, true, nil
	}

	if m.balance < price {
		return nil, 0, false, &access.InsufficientPointsError{Balance: m.balance, Price: price}
	}

	m.balance -= price
	unlock := &model.EarlyUnlock{
		UserID:      userID,
		PointsSpent: price,
		UnlockedAt:  now,
	}
	id := target.ID()
	if target.Kind() == access.TargetChapter {
		unlock.ChapterID = &id
	} else {
		unlock.LessonID = &id
	}
	store[id] = unlock
	return unlock, m.balance, false, nil
}

// Load 让服务读到账本里的当前解锁集合，快照与账本不会分叉
func (m *memoryLedger) Load(_ context.Context, _, _ uint) (access.LearnerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := access.NewLearnerState()
	for id := range m.chapters {
		st.UnlockedChapters[id] = true
	}
	for id := range m.lessons {
		st.UnlockedLessons[id] = true
	}
	for id := range m.completed {
		st.Completed[id] = true
	}
	for id := range m.submitted {
		st.Submitted[id] = true
	}
	return st, nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(_ context.Context, _, _ uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

// =============================================================================
// FIXTURE
// =============================================================================

func futureAt(hours int) *time.Time {
	t := unlockNow.Add(time.Duration(hours) * time.Hour)
	return &t
}

// 课程结构：
//
//	章 10（已发布）：课 1（已发布）、课 2（未来发布）
//	章 20（未来发布）：课 3（未来发布）
//	章 30（未来发布）：课 4
func unlockFixture() *model.Course {
	l1 := model.Lesson{Position: 1}
	l1.ID = 1
	l2 := model.Lesson{Position: 2, ReleaseAt: futureAt(48)}
	l2.ID = 2
	l3 := model.Lesson{Position: 1, ReleaseAt: futureAt(96)}
	l3.ID = 3
	l4 := model.Lesson{Position: 1}
	l4.ID = 4

	ch1 := model.Chapter{Position: 1, Lessons: []model.Lesson{l1, l2}}
	ch1.ID = 10
	ch2 := model.Chapter{Position: 2, ReleaseAt: futureAt(96), Lessons: []model.Lesson{l3}}
	ch2.ID = 20
	ch3 := model.Chapter{Position: 3, ReleaseAt: futureAt(120), Lessons: []model.Lesson{l4}}
	ch3.ID = 30

	course := &model.Course{Title: "course", Chapters: []model.Chapter{ch1, ch2, ch3}}
	course.ID = 1
	return course
}

func newUnlockService(ledger *memoryLedger) (*service.UnlockService, *countingInvalidator) {
	cache := &countingInvalidator{}
	svc := service.NewUnlockService(&fixtureCourses{course: unlockFixture()}, ledger, ledger, cache)
	return svc, cache
}

// =============================================================================
// TESTS
// =============================================================================

func TestUnlockEarly_SpendsPointsAndRecordsUnlock(t *testing.T) {
	ledger := newMemoryLedger(15)
	ledger.completed[1] = true
	ledger.completed[2] = true
	svc, cache := newUnlockService(ledger)

	result, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Balance)
	assert.False(t, result.AlreadyUnlocked)
	assert.Equal(t, uint(1), result.CourseID)
	require.NotNil(t, result.Unlock)
	require.NotNil(t, result.Unlock.ChapterID)
	assert.Equal(t, uint(20), *result.Unlock.ChapterID)
	assert.Equal(t, access.ChapterUnlockPrice, result.Unlock.PointsSpent)
	assert.Equal(t, 1, cache.calls)
}

func TestUnlockEarly_LessonPrice(t *testing.T) {
	ledger := newMemoryLedger(7)
	ledger.completed[1] = true
	svc, _ := newUnlockService(ledger)

	result, err := svc.UnlockEarly(context.Background(), 7, access.LessonTarget(2), unlockNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Balance)
	assert.Equal(t, access.LessonUnlockPrice, result.Unlock.PointsSpent)
}

func TestUnlockEarly_InsufficientPoints(t *testing.T) {
	ledger := newMemoryLedger(5)
	ledger.completed[1] = true
	ledger.completed[2] = true
	svc, cache := newUnlockService(ledger)

	_, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, access.ErrInsufficientPoints))

	var insufficient *access.InsufficientPointsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Balance)
	assert.Equal(t, access.ChapterUnlockPrice, insufficient.Price)

	// 失败不扣费、不动缓存
	balance, _ := ledger.Balance(context.Background(), 7)
	assert.Equal(t, 5, balance)
	assert.Equal(t, 0, cache.calls)
}

func TestUnlockEarly_AlreadyAvailable(t *testing.T) {
	ledger := newMemoryLedger(100)
	svc, _ := newUnlockService(ledger)

	// 无 ReleaseAt：始终可见
	_, err := svc.UnlockEarly(context.Background(), 7, access.LessonTarget(1), unlockNow)
	assert.True(t, errors.Is(err, access.ErrAlreadyAvailable))

	// 已发布的章节同理
	_, err = svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(10), unlockNow)
	assert.True(t, errors.Is(err, access.ErrAlreadyAvailable))

	balance, _ := ledger.Balance(context.Background(), 7)
	assert.Equal(t, 100, balance)
}

func TestUnlockEarly_ReleaseTimePassedBetweenViews(t *testing.T) {
	ledger := newMemoryLedger(100)
	ledger.completed[1] = true
	svc, _ := newUnlockService(ledger)

	// 页面加载时未发布，点解锁时已过发布时间：按当前数据拒绝
	later := unlockNow.Add(49 * time.Hour)
	_, err := svc.UnlockEarly(context.Background(), 7, access.LessonTarget(2), later)
	assert.True(t, errors.Is(err, access.ErrAlreadyAvailable))
}

func TestUnlockEarly_PrerequisitesNotMet(t *testing.T) {
	ledger := newMemoryLedger(100)
	ledger.completed[1] = true
	// 课 2 未完成，章 20 的前置不满足
	svc, _ := newUnlockService(ledger)

	_, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, access.ErrPrerequisitesNotMet))

	var prereq *access.PrerequisiteError
	require.True(t, errors.As(err, &prereq))
	assert.Equal(t, uint(10), prereq.BlockingChapterID)
	assert.Equal(t, uint(2), prereq.BlockingLessonID)

	balance, _ := ledger.Balance(context.Background(), 7)
	assert.Equal(t, 100, balance)
}

func TestUnlockEarly_TargetNotFound(t *testing.T) {
	ledger := newMemoryLedger(100)
	svc, _ := newUnlockService(ledger)

	_, err := svc.UnlockEarly(context.Background(), 7, access.LessonTarget(999), unlockNow)
	assert.True(t, errors.Is(err, access.ErrTargetNotFound))
}

func TestUnlockEarly_RepeatIsIdempotent(t *testing.T) {
	ledger := newMemoryLedger(20)
	ledger.completed[1] = true
	ledger.completed[2] = true
	svc, _ := newUnlockService(ledger)

	first, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Balance)

	// 重复解锁：返回现有记录，余额不变，即使余额已不足一次新解锁
	second, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.NoError(t, err)
	assert.True(t, second.AlreadyUnlocked)
	assert.Equal(t, 10, second.Balance)
	assert.Equal(t, first.Unlock, second.Unlock)
}

func TestUnlockEarly_RepeatAfterSpendingDown(t *testing.T) {
	ledger := newMemoryLedger(10)
	ledger.completed[1] = true
	ledger.completed[2] = true
	svc, _ := newUnlockService(ledger)

	_, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.NoError(t, err)

	// 余额归零后重复解锁同一目标仍然成功（幂等优先于余额检查）
	result, err := svc.UnlockEarly(context.Background(), 7, access.ChapterTarget(20), unlockNow)
	require.NoError(t, err)
	assert.True(t, result.AlreadyUnlocked)
	assert.Equal(t, 0, result.Balance)
}

func TestUnlockEarly_ConcurrentSpend_ExactBalance(t *testing.T) {
	// 余额恰好够一次章节解锁，两个不同目标并发竞争：
	// 恰好一个成功，另一个收到余额不足，余额归零不为负。
	ledger := newMemoryLedger(access.ChapterUnlockPrice)
	ledger.completed[1] = true
	ledger.completed[2] = true
	ledger.completed[3] = true
	svc, _ := newUnlockService(ledger)

	targets := []access.Target{access.ChapterTarget(20), access.ChapterTarget(30)}
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target access.Target) {
			defer wg.Done()
			_, errs[i] = svc.UnlockEarly(context.Background(), 7, target, unlockNow)
		}(i, target)
	}
	wg.Wait()

	successes := 0
	insufficient := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, access.ErrInsufficientPoints):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)

	balance, _ := ledger.Balance(context.Background(), 7)
	assert.Equal(t, 0, balance)
}
