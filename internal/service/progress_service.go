package service

import (
	"context"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/repository"

	"gorm.io/gorm"
)

// ProgressService “标记完成”协作方：写 LessonProgress，引擎只读它
type ProgressService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	Access       *AccessService
}

func NewProgressService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository, accessService *AccessService) *ProgressService {
	return &ProgressService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		Access:       accessService,
	}
}

// MarkLessonComplete 幂等地记录课时完成并失效解析缓存
func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID uint, now time.Time) error {
	course, err := s.CourseRepo.CourseForTarget(ctx, access.LessonTarget(lessonID))
	if err != nil {
		return err
	}

	if err := s.ProgressRepo.MarkCompleted(ctx, userID, lessonID, now); err != nil {
		return err
	}

	s.Access.Invalidate(ctx, userID, course.ID)
	return nil
}

// CourseCompletion 课程内完成课时数与总数，仪表盘用
func (s *ProgressService) CourseCompletion(ctx context.Context, userID, courseID uint) (completed, total int, err error) {
	course, err := s.CourseRepo.FindWithContent(ctx, courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, 0, access.ErrTargetNotFound
		}
		return 0, 0, err
	}

	done, err := s.ProgressRepo.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return 0, 0, err
	}

	for _, ch := range course.Chapters {
		for _, l := range ch.Lessons {
			total++
			if done[l.ID] {
				completed++
			}
		}
	}
	return completed, total, nil
}
