package repository

import (
	"context"
	"time"

	"opencourse_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// CompletedLessonIDs 学习者在某课程内已完成的课时 ID 集合
func (r *ProgressRepository) CompletedLessonIDs(ctx context.Context, userID, courseID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.LessonProgress{}).
		Select("lesson_progresses.lesson_id").
		Joins("JOIN lessons ON lessons.id = lesson_progresses.lesson_id").
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("lesson_progresses.user_id = ? AND lesson_progresses.completed = ? AND chapters.course_id = ?",
			userID, true, courseID).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// MarkCompleted 幂等地写入完成记录
func (r *ProgressRepository) MarkCompleted(ctx context.Context, userID, lessonID uint, now time.Time) error {
	progress := model.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &now,
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
		}).
		Create(&progress).Error
}
