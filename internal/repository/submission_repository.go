package repository

import (
	"context"

	"opencourse_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// SubmittedLessonIDs 学习者在某课程内存在作业提交的课时 ID 集合。
// 只看提交行是否存在，状态不参与，这就是进度门槛用到的全部信息。
func (r *SubmissionRepository) SubmittedLessonIDs(ctx context.Context, userID, courseID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.AssignmentSubmission{}).
		Select("assignments.lesson_id").
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Joins("JOIN lessons ON lessons.id = assignments.lesson_id").
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("assignment_submissions.user_id = ? AND chapters.course_id = ?", userID, courseID).
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

// Upsert 提交或重新提交：同一 (user, assignment) 只保留一行，
// 重交覆盖内容并把状态拉回 pending
func (r *SubmissionRepository) Upsert(ctx context.Context, sub *model.AssignmentSubmission) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "file_url", "status", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id uint) (*model.AssignmentSubmission, error) {
	var sub model.AssignmentSubmission
	if err := r.DB.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]model.AssignmentSubmission, error) {
	var subs []model.AssignmentSubmission
	err := r.DB.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("updated_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
