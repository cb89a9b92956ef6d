package access

import (
	"time"

	"opencourse_backend/internal/model"
)

// CheckPrerequisites 校验 target 之前（严格顺序意义上）的全部课时均已过关。
// 章节目标检查所有更早章节的课时；课时目标检查顺序上在它之前的所有课时。
// 解锁事务在扣费前重跑此检查：提前解锁只加速时间，不允许跳过未完成的序列。
// 返回第一个未满足项的 *PrerequisiteError；目标不在课程内返回 ErrTargetNotFound。
func CheckPrerequisites(course *model.Course, st LearnerState, target Target) error {
	chapters := sortedChapters(course.Chapters)

	for ci := range chapters {
		ch := &chapters[ci]
		if target.Kind() == TargetChapter && ch.ID == target.ID() {
			return nil
		}

		lessons := sortedLessons(ch.Lessons)
		for li := range lessons {
			l := &lessons[li]
			if target.Kind() == TargetLesson && l.ID == target.ID() {
				return nil
			}
			if !st.Completed[l.ID] {
				return &PrerequisiteError{
					BlockingChapterID: ch.ID,
					BlockingLessonID:  l.ID,
					Reason:            "incomplete",
				}
			}
			if !IsAssignmentSatisfied(l, st) {
				return &PrerequisiteError{
					BlockingChapterID: ch.ID,
					BlockingLessonID:  l.ID,
					Reason:            "assignment_missing",
				}
			}
		}
	}

	return ErrTargetNotFound
}

// TargetReleaseAt 在课程树中定位目标的 ReleaseAt。
// 第二个返回值表示目标是否属于该课程。
func TargetReleaseAt(course *model.Course, target Target) (*time.Time, bool) {
	for ci := range course.Chapters {
		ch := &course.Chapters[ci]
		if target.Kind() == TargetChapter && ch.ID == target.ID() {
			return ch.ReleaseAt, true
		}
		for li := range ch.Lessons {
			l := &ch.Lessons[li]
			if target.Kind() == TargetLesson && l.ID == target.ID() {
				return l.ReleaseAt, true
			}
		}
	}
	return nil, false
}

// Unlocked 快照中该目标是否已被提前解锁
func (st LearnerState) Unlocked(target Target) bool {
	if target.Kind() == TargetChapter {
		return st.UnlockedChapters[target.ID()]
	}
	return st.UnlockedLessons[target.ID()]
}
