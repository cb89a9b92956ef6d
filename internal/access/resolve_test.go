package access_test

import (
	"testing"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func future() *time.Time {
	t := testNow.Add(72 * time.Hour)
	return &t
}

func past() *time.Time {
	t := testNow.Add(-72 * time.Hour)
	return &t
}

func lesson(id uint, pos int) model.Lesson {
	l := model.Lesson{Position: pos, Title: "lesson"}
	l.ID = id
	return l
}

func lessonWithAssignment(id uint, pos int) model.Lesson {
	l := lesson(id, pos)
	a := &model.Assignment{LessonID: id, Title: "homework"}
	a.ID = id * 100
	l.Assignment = a
	return l
}

func lessonReleasedAt(id uint, pos int, at *time.Time) model.Lesson {
	l := lesson(id, pos)
	l.ReleaseAt = at
	return l
}

func chapter(id uint, pos int, lessons ...model.Lesson) model.Chapter {
	ch := model.Chapter{Position: pos, Title: "chapter"}
	ch.ID = id
	ch.Lessons = lessons
	return ch
}

func chapterReleasedAt(id uint, pos int, at *time.Time, lessons ...model.Lesson) model.Chapter {
	ch := chapter(id, pos, lessons...)
	ch.ReleaseAt = at
	return ch
}

func courseOf(chapters ...model.Chapter) *model.Course {
	c := &model.Course{Title: "course"}
	c.ID = 1
	c.Chapters = chapters
	return c
}

func stateWith(completed, submitted []uint) access.LearnerState {
	st := access.NewLearnerState()
	for _, id := range completed {
		st.Completed[id] = true
	}
	for _, id := range submitted {
		st.Submitted[id] = true
	}
	return st
}

func findLesson(t *testing.T, rc *access.ResolvedCourse, id uint) access.ResolvedLesson {
	t.Helper()
	for _, ch := range rc.Chapters {
		for _, l := range ch.Lessons {
			if l.ID == id {
				return l
			}
		}
	}
	t.Fatalf("lesson %d not in resolved course", id)
	return access.ResolvedLesson{}
}

func findChapter(t *testing.T, rc *access.ResolvedCourse, id uint) access.ResolvedChapter {
	t.Helper()
	for _, ch := range rc.Chapters {
		if ch.ID == id {
			return ch
		}
	}
	t.Fatalf("chapter %d not in resolved course", id)
	return access.ResolvedChapter{}
}

// =============================================================================
// PROGRESSION RULES
// =============================================================================

func TestResolve_FirstLessonNeverProgressionLocked(t *testing.T) {
	course := courseOf(chapter(10, 1, lesson(1, 1), lesson(2, 2)))

	rc := access.Resolve(course, access.NewLearnerState(), testNow)

	first := findLesson(t, rc, 1)
	assert.False(t, first.ProgressionLocked)
	assert.False(t, first.Locked)
}

func TestResolve_SecondLessonLockedUntilFirstCompleted(t *testing.T) {
	course := courseOf(chapter(10, 1, lesson(1, 1), lesson(2, 2)))

	rc := access.Resolve(course, access.NewLearnerState(), testNow)
	second := findLesson(t, rc, 2)
	assert.True(t, second.ProgressionLocked)
	assert.True(t, second.Locked)
	require.NotNil(t, second.BlockedByLessonID)
	assert.Equal(t, uint(1), *second.BlockedByLessonID)
	require.NotNil(t, second.BlockedByChapterID)
	assert.Equal(t, uint(10), *second.BlockedByChapterID)

	rc = access.Resolve(course, stateWith([]uint{1}, nil), testNow)
	second = findLesson(t, rc, 2)
	assert.False(t, second.ProgressionLocked)
	assert.False(t, second.Locked)
	assert.Nil(t, second.BlockedByLessonID)
}

func TestResolve_AssignmentGateBlocksUntilSubmission(t *testing.T) {
	course := courseOf(chapter(10, 1, lessonWithAssignment(1, 1), lesson(2, 2)))

	// 完成但没交作业：后续仍锁
	rc := access.Resolve(course, stateWith([]uint{1}, nil), testNow)
	second := findLesson(t, rc, 2)
	assert.True(t, second.ProgressionLocked)
	require.NotNil(t, second.BlockedByLessonID)
	assert.Equal(t, uint(1), *second.BlockedByLessonID)

	// 提交存在即放行，无需等待批改
	rc = access.Resolve(course, stateWith([]uint{1}, []uint{1}), testNow)
	second = findLesson(t, rc, 2)
	assert.False(t, second.ProgressionLocked)

	first := findLesson(t, rc, 1)
	assert.True(t, first.HasAssignment)
	assert.True(t, first.AssignmentDone)
}

func TestResolve_ProgressionCrossesChapterBoundary(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lesson(2, 2)),
		chapter(20, 2, lesson(3, 1)),
	)

	// 第一章末课时未完成：第二章首课时被它挡住
	rc := access.Resolve(course, stateWith([]uint{1}, nil), testNow)
	third := findLesson(t, rc, 3)
	assert.True(t, third.ProgressionLocked)
	require.NotNil(t, third.BlockedByLessonID)
	assert.Equal(t, uint(2), *third.BlockedByLessonID)
	assert.Equal(t, uint(10), *third.BlockedByChapterID)

	rc = access.Resolve(course, stateWith([]uint{1, 2}, nil), testNow)
	third = findLesson(t, rc, 3)
	assert.False(t, third.ProgressionLocked)
}

func TestResolve_EmptyChapterDoesNotBlock(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1)),
		chapter(20, 2), // 没有课时
		chapter(30, 3, lesson(2, 1)),
	)

	rc := access.Resolve(course, stateWith([]uint{1}, nil), testNow)

	// 空章节既不阻塞后续章节，也不断开课时链
	second := findLesson(t, rc, 2)
	assert.False(t, second.ProgressionLocked)
	assert.False(t, findChapter(t, rc, 30).Locked)
}

func TestResolve_ChapterStructuralLock(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1)),
		chapter(20, 2, lesson(2, 1)),
	)

	rc := access.Resolve(course, access.NewLearnerState(), testNow)
	assert.False(t, findChapter(t, rc, 10).Locked)
	assert.True(t, findChapter(t, rc, 20).Locked)

	rc = access.Resolve(course, stateWith([]uint{1}, nil), testNow)
	assert.False(t, findChapter(t, rc, 20).Locked)
}

// =============================================================================
// TIME LOCK AND EARLY UNLOCK
// =============================================================================

func TestResolve_FutureReleaseIsTimeLocked(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lessonReleasedAt(1, 1, future())),
	)

	rc := access.Resolve(course, access.NewLearnerState(), testNow)
	l := findLesson(t, rc, 1)
	assert.False(t, l.Released)
	assert.True(t, l.TimeLocked)
	assert.True(t, l.Locked)
	assert.False(t, l.ProgressionLocked)
}

func TestResolve_EarlyUnlockLiftsTimeLockOnly(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lessonReleasedAt(2, 2, future())),
	)

	st := stateWith(nil, nil)
	st.UnlockedLessons[2] = true

	rc := access.Resolve(course, st, testNow)
	second := findLesson(t, rc, 2)

	// 解锁豁免时间锁，但 Released 仍如实上报；进度锁不受影响
	assert.False(t, second.Released)
	assert.True(t, second.EarlyUnlocked)
	assert.False(t, second.TimeLocked)
	assert.True(t, second.ProgressionLocked)
	assert.True(t, second.Locked)
}

func TestResolve_ChapterTimeLockAndUnlock(t *testing.T) {
	course := courseOf(
		chapterReleasedAt(10, 1, future(), lesson(1, 1)),
	)

	rc := access.Resolve(course, access.NewLearnerState(), testNow)
	ch := findChapter(t, rc, 10)
	assert.False(t, ch.Released)
	assert.True(t, ch.TimeLocked)

	st := access.NewLearnerState()
	st.UnlockedChapters[10] = true
	rc = access.Resolve(course, st, testNow)
	ch = findChapter(t, rc, 10)
	assert.False(t, ch.Released)
	assert.True(t, ch.EarlyUnlocked)
	assert.False(t, ch.TimeLocked)
}

func TestResolve_PastAndNilReleaseAreReleased(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lessonReleasedAt(1, 1, past()), lesson(2, 2)),
	)

	rc := access.Resolve(course, stateWith([]uint{1}, nil), testNow)
	assert.True(t, findLesson(t, rc, 1).Released)
	assert.False(t, findLesson(t, rc, 1).TimeLocked)
	assert.True(t, findLesson(t, rc, 2).Released)
}

func TestResolve_ReleaseExactlyNowIsReleased(t *testing.T) {
	now := testNow
	course := courseOf(chapter(10, 1, lessonReleasedAt(1, 1, &now)))

	rc := access.Resolve(course, access.NewLearnerState(), now)
	assert.True(t, findLesson(t, rc, 1).Released)
}

// =============================================================================
// ORDERING
// =============================================================================

func TestResolve_OrdersByPosition(t *testing.T) {
	course := courseOf(
		chapter(20, 2, lesson(3, 1)),
		chapter(10, 1, lesson(2, 2), lesson(1, 1)),
	)

	rc := access.Resolve(course, access.NewLearnerState(), testNow)

	require.Len(t, rc.Chapters, 2)
	assert.Equal(t, uint(10), rc.Chapters[0].ID)
	assert.Equal(t, uint(20), rc.Chapters[1].ID)
	require.Len(t, rc.Chapters[0].Lessons, 2)
	assert.Equal(t, uint(1), rc.Chapters[0].Lessons[0].ID)
	assert.Equal(t, uint(2), rc.Chapters[0].Lessons[1].ID)
}

func TestResolve_DuplicatePositionsKeepInputOrder(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lesson(2, 1), lesson(3, 2)),
	)

	rc := access.Resolve(course, access.NewLearnerState(), testNow)

	ids := []uint{}
	for _, l := range rc.Chapters[0].Lessons {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []uint{1, 2, 3}, ids)
}

func TestResolve_IsPureAndRepeatable(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lessonWithAssignment(1, 1), lesson(2, 2)),
		chapter(20, 2, lessonReleasedAt(3, 1, future())),
	)
	st := stateWith([]uint{1}, []uint{1})

	first := access.Resolve(course, st, testNow)
	second := access.Resolve(course, st, testNow)
	assert.Equal(t, first, second)
}
