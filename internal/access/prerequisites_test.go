package access_test

import (
	"errors"
	"testing"

	"opencourse_backend/internal/access"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrerequisites_AllPriorLessonsSatisfied(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lesson(2, 2)),
		chapter(20, 2, lesson(3, 1)),
	)
	st := stateWith([]uint{1, 2}, nil)

	assert.NoError(t, access.CheckPrerequisites(course, st, access.LessonTarget(3)))
	assert.NoError(t, access.CheckPrerequisites(course, st, access.ChapterTarget(20)))
}

func TestCheckPrerequisites_ReportsFirstIncompleteLesson(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lesson(2, 2)),
		chapter(20, 2, lesson(3, 1)),
	)

	err := access.CheckPrerequisites(course, stateWith([]uint{1}, nil), access.ChapterTarget(20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, access.ErrPrerequisitesNotMet))

	var prereq *access.PrerequisiteError
	require.True(t, errors.As(err, &prereq))
	assert.Equal(t, uint(10), prereq.BlockingChapterID)
	assert.Equal(t, uint(2), prereq.BlockingLessonID)
	assert.Equal(t, "incomplete", prereq.Reason)
}

func TestCheckPrerequisites_AssignmentWithoutSubmissionBlocks(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lessonWithAssignment(1, 1)),
		chapter(20, 2, lesson(2, 1)),
	)

	err := access.CheckPrerequisites(course, stateWith([]uint{1}, nil), access.LessonTarget(2))
	var prereq *access.PrerequisiteError
	require.True(t, errors.As(err, &prereq))
	assert.Equal(t, uint(1), prereq.BlockingLessonID)
	assert.Equal(t, "assignment_missing", prereq.Reason)

	// 存在提交即满足，批改状态不参与
	assert.NoError(t, access.CheckPrerequisites(course, stateWith([]uint{1}, []uint{1}), access.LessonTarget(2)))
}

func TestCheckPrerequisites_LaterLessonsIgnored(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lesson(2, 2), lesson(3, 3)),
	)

	// 目标之后的课时不管多乱都不影响
	assert.NoError(t, access.CheckPrerequisites(course, access.NewLearnerState(), access.LessonTarget(1)))
	assert.NoError(t, access.CheckPrerequisites(course, stateWith([]uint{1}, nil), access.LessonTarget(2)))
}

func TestCheckPrerequisites_ChapterTargetSkipsOwnLessons(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1)),
		chapter(20, 2, lesson(2, 1)),
	)

	// 目标章节自己的课时不算前置
	assert.NoError(t, access.CheckPrerequisites(course, stateWith([]uint{1}, nil), access.ChapterTarget(20)))
}

func TestCheckPrerequisites_UnknownTarget(t *testing.T) {
	course := courseOf(chapter(10, 1, lesson(1, 1)))
	st := stateWith([]uint{1}, nil)

	err := access.CheckPrerequisites(course, st, access.LessonTarget(99))
	assert.True(t, errors.Is(err, access.ErrTargetNotFound))

	err = access.CheckPrerequisites(course, st, access.ChapterTarget(99))
	assert.True(t, errors.Is(err, access.ErrTargetNotFound))
}

func TestTargetReleaseAt(t *testing.T) {
	release := future()
	course := courseOf(
		chapterReleasedAt(10, 1, release, lessonReleasedAt(1, 1, release), lesson(2, 2)),
	)

	at, ok := access.TargetReleaseAt(course, access.ChapterTarget(10))
	require.True(t, ok)
	assert.Equal(t, release, at)

	at, ok = access.TargetReleaseAt(course, access.LessonTarget(2))
	require.True(t, ok)
	assert.Nil(t, at)

	_, ok = access.TargetReleaseAt(course, access.LessonTarget(99))
	assert.False(t, ok)
}

func TestTargetPrice(t *testing.T) {
	assert.Equal(t, access.ChapterUnlockPrice, access.ChapterTarget(1).Price())
	assert.Equal(t, access.LessonUnlockPrice, access.LessonTarget(1).Price())
}

// 前置检查比解析器的进度锁更严：解析器只看紧前一课时，
// 前置检查扫描全部更早课时。因此对任意状态组合，
// 进度锁定的课时必然过不了前置检查（反向不成立）。
func TestCheckPrerequisites_StricterThanResolver(t *testing.T) {
	course := courseOf(
		chapter(10, 1, lesson(1, 1), lessonWithAssignment(2, 2)),
		chapter(20, 2, lesson(3, 1), lesson(4, 2)),
	)
	lessonIDs := []uint{1, 2, 3, 4}

	// 枚举完成集合与提交集合的全部组合
	for cmask := 0; cmask < 16; cmask++ {
		for smask := 0; smask < 16; smask++ {
			st := access.NewLearnerState()
			for i, id := range lessonIDs {
				if cmask&(1<<i) != 0 {
					st.Completed[id] = true
				}
				if smask&(1<<i) != 0 {
					st.Submitted[id] = true
				}
			}

			rc := access.Resolve(course, st, testNow)
			for _, id := range lessonIDs {
				rl := findLesson(t, rc, id)
				err := access.CheckPrerequisites(course, st, access.LessonTarget(id))
				if rl.ProgressionLocked {
					assert.Error(t, err, "lesson %d cmask=%b smask=%b", id, cmask, smask)
				}
				if err == nil {
					assert.False(t, rl.ProgressionLocked, "lesson %d cmask=%b smask=%b", id, cmask, smask)
				}
			}
		}
	}
}
