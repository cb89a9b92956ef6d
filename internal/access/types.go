// Package access 实现课程进度与访问控制引擎的纯计算部分：
// 给定课程结构、学习者快照与当前时间，推导每个章节/课时的锁定状态。
// 锁定状态永远是派生值，不落库（完成度、提交、时钟三个输入独立变化，
// 存储锁定位会带来缓存失效问题）。
package access

import (
	"fmt"
	"time"

	"opencourse_backend/internal/model"
)

// 解锁定价为策略常量，调用方不得自行定价
const (
	ChapterUnlockPrice = 10
	LessonUnlockPrice  = 7
)

type TargetKind string

const (
	TargetChapter TargetKind = "chapter"
	TargetLesson  TargetKind = "lesson"
)

// Target 解锁目标：章节或课时二选一。
// 只能通过构造函数创建，"两者皆有/皆无"在类型层面不可表示。
type Target struct {
	kind TargetKind
	id   uint
}

func ChapterTarget(id uint) Target {
	return Target{kind: TargetChapter, id: id}
}

func LessonTarget(id uint) Target {
	return Target{kind: TargetLesson, id: id}
}

func (t Target) Kind() TargetKind { return t.kind }

func (t Target) ID() uint { return t.id }

// Price 返回该目标的解锁价格
func (t Target) Price() int {
	if t.kind == TargetChapter {
		return ChapterUnlockPrice
	}
	return LessonUnlockPrice
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.kind, t.id)
}

// LearnerState 学习者在单个课程上的不可变快照。
// Submitted 按课时 ID 记录是否存在作业提交，只看存在性，与批改状态无关。
type LearnerState struct {
	Completed        map[uint]bool
	Submitted        map[uint]bool
	UnlockedChapters map[uint]bool
	UnlockedLessons  map[uint]bool
}

func NewLearnerState() LearnerState {
	return LearnerState{
		Completed:        map[uint]bool{},
		Submitted:        map[uint]bool{},
		UnlockedChapters: map[uint]bool{},
		UnlockedLessons:  map[uint]bool{},
	}
}

// ResolvedLesson 课时的解析结果。
// Locked = ProgressionLocked || TimeLocked；
// BlockedBy 为造成进度锁定的前一课时 ID，供前端跳转。
type ResolvedLesson struct {
	ID                 uint       `json:"id"`
	Title              string     `json:"title"`
	Position           int        `json:"position"`
	ReleaseAt          *time.Time `json:"releaseAt"`
	Released           bool       `json:"released"`
	EarlyUnlocked      bool       `json:"earlyUnlocked"`
	TimeLocked         bool       `json:"timeLocked"`
	ProgressionLocked  bool       `json:"progressionLocked"`
	Locked             bool       `json:"locked"`
	Completed          bool       `json:"completed"`
	HasAssignment      bool       `json:"hasAssignment"`
	AssignmentDone     bool       `json:"assignmentDone"`
	BlockedByLessonID  *uint      `json:"blockedByLessonId,omitempty"`
	BlockedByChapterID *uint      `json:"blockedByChapterId,omitempty"`
}

// ResolvedChapter 章节的解析结果。
// Locked 是结构性锁（前置章节未完成），TimeLocked 独立上报，
// 前端据此区分“先学完前面”与“等待发布/付费解锁”。
type ResolvedChapter struct {
	ID            uint             `json:"id"`
	Title         string           `json:"title"`
	Position      int              `json:"position"`
	ReleaseAt     *time.Time       `json:"releaseAt"`
	Released      bool             `json:"released"`
	EarlyUnlocked bool             `json:"earlyUnlocked"`
	TimeLocked    bool             `json:"timeLocked"`
	Locked        bool             `json:"locked"`
	Lessons       []ResolvedLesson `json:"lessons"`
}

// swagger:model ResolvedCourse
type ResolvedCourse struct {
	ID       uint              `json:"id"`
	Title    string            `json:"title"`
	Chapters []ResolvedChapter `json:"chapters"`
}

// lessonSatisfied 进度意义上的“过关”：课时已完成，且作业（如有）已提交。
// 解析器与解锁事务共用此判定，两边不允许分叉。
func lessonSatisfied(l *model.Lesson, st LearnerState) bool {
	if !st.Completed[l.ID] {
		return false
	}
	if l.Assignment != nil && !st.Submitted[l.ID] {
		return false
	}
	return true
}

// IsAssignmentSatisfied 作业门槛判定：无作业恒为真，
// 有作业则只看是否存在提交记录，状态（pending/returned/graded）不参与。
func IsAssignmentSatisfied(l *model.Lesson, st LearnerState) bool {
	return l.Assignment == nil || st.Submitted[l.ID]
}
