package service

import (
	"context"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/repository"
)

// LearnerStateLoader 组装访问解析所需的学习者快照。
// 读路径（解析课程树）与写路径（解锁事务重校验）都必须经过这里，
// 保证作业门槛判定在两条路径上吃到完全相同的数据。
type LearnerStateLoader struct {
	ProgressRepo   *repository.ProgressRepository
	SubmissionRepo *repository.SubmissionRepository
	UnlockRepo     *repository.UnlockRepository
}

func NewLearnerStateLoader(
	progressRepo *repository.ProgressRepository,
	submissionRepo *repository.SubmissionRepository,
	unlockRepo *repository.UnlockRepository,
) *LearnerStateLoader {
	return &LearnerStateLoader{
		ProgressRepo:   progressRepo,
		SubmissionRepo: submissionRepo,
		UnlockRepo:     unlockRepo,
	}
}

func (l *LearnerStateLoader) Load(ctx context.Context, userID, courseID uint) (access.LearnerState, error) {
	st := access.NewLearnerState()

	completed, err := l.ProgressRepo.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return st, err
	}
	submitted, err := l.SubmissionRepo.SubmittedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return st, err
	}
	chapters, lessons, err := l.UnlockRepo.UnlockedIDs(ctx, userID, courseID)
	if err != nil {
		return st, err
	}

	st.Completed = completed
	st.Submitted = submitted
	st.UnlockedChapters = chapters
	st.UnlockedLessons = lessons
	return st, nil
}
