package access

import (
	"sort"
	"time"

	"opencourse_backend/internal/model"
)

// Resolve 计算学习者对整棵课程树的访问状态。
// 纯函数：无 I/O、无副作用，now 显式传入以便测试。
// 同一输入永远得到同一输出，可以在每次页面加载时安全并发调用。
//
// 章节规则：
//   - released    = ReleaseAt 为空或已过
//   - timeLocked  = ReleaseAt 在未来且未提前解锁
//   - locked      = 存在更早章节有课时未过关（结构性锁，与 timeLocked 独立上报）
//
// 课时规则：
//   - 全课程第一课时永不进度锁定
//   - 其余课时与"紧前一课时"比较，跨章节边界时取上一非空章节的最后一课时
//   - 前一课时未完成、或其作业无提交，则当前课时进度锁定
//   - locked = progressionLocked || timeLocked；提前解锁只豁免时间锁
func Resolve(course *model.Course, st LearnerState, now time.Time) *ResolvedCourse {
	rc := &ResolvedCourse{
		ID:    course.ID,
		Title: course.Title,
	}

	chapters := sortedChapters(course.Chapters)

	// prevSatisfied: 已处理的所有章节的全部课时均已过关
	prevSatisfied := true
	// prev: 顺序上的前一课时及其所属章节（跨章节延续）
	var prev *model.Lesson
	var prevChapterID uint

	for ci := range chapters {
		ch := &chapters[ci]

		released := ch.ReleaseAt == nil || !ch.ReleaseAt.After(now)
		early := st.UnlockedChapters[ch.ID]

		rch := ResolvedChapter{
			ID:            ch.ID,
			Title:         ch.Title,
			Position:      ch.Position,
			ReleaseAt:     ch.ReleaseAt,
			Released:      released,
			EarlyUnlocked: early,
			TimeLocked:    ch.ReleaseAt != nil && !released && !early,
			Locked:        !prevSatisfied,
		}

		lessons := sortedLessons(ch.Lessons)
		chapterSatisfied := true
		for li := range lessons {
			l := &lessons[li]
			rch.Lessons = append(rch.Lessons, resolveLesson(l, st, now, prev, prevChapterID))
			if !lessonSatisfied(l, st) {
				chapterSatisfied = false
			}
			prev = l
			prevChapterID = ch.ID
		}
		// 空章节不阻塞后续章节，prev 保持为上一非空章节的末课时

		rc.Chapters = append(rc.Chapters, rch)
		if !chapterSatisfied {
			prevSatisfied = false
		}
	}

	return rc
}

func resolveLesson(l *model.Lesson, st LearnerState, now time.Time, prev *model.Lesson, prevChapterID uint) ResolvedLesson {
	released := l.ReleaseAt == nil || !l.ReleaseAt.After(now)
	early := st.UnlockedLessons[l.ID]

	rl := ResolvedLesson{
		ID:             l.ID,
		Title:          l.Title,
		Position:       l.Position,
		ReleaseAt:      l.ReleaseAt,
		Released:       released,
		EarlyUnlocked:  early,
		TimeLocked:     l.ReleaseAt != nil && !released && !early,
		Completed:      st.Completed[l.ID],
		HasAssignment:  l.Assignment != nil,
		AssignmentDone: IsAssignmentSatisfied(l, st),
	}

	if prev != nil && !lessonSatisfied(prev, st) {
		rl.ProgressionLocked = true
		blockedLesson := prev.ID
		blockedChapter := prevChapterID
		rl.BlockedByLessonID = &blockedLesson
		rl.BlockedByChapterID = &blockedChapter
	}

	rl.Locked = rl.ProgressionLocked || rl.TimeLocked
	return rl
}

// sortedChapters 按 Position 稳定排序。
// Position 重复属于著作端前置条件被破坏，此处退化为数组顺序而不是报错。
func sortedChapters(chapters []model.Chapter) []model.Chapter {
	out := make([]model.Chapter, len(chapters))
	copy(out, chapters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}

func sortedLessons(lessons []model.Lesson) []model.Lesson {
	out := make([]model.Lesson, len(lessons))
	copy(out, lessons)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
