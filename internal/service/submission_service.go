package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"
	"opencourse_backend/internal/repository"
	"opencourse_backend/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionService 作业提交与批改。
// 提交行的存在性直接喂给进度门槛；批改只影响反馈与积分奖励。
type SubmissionService struct {
	CourseRepo     *repository.CourseRepository
	SubmissionRepo *repository.SubmissionRepository
	UserRepo       *repository.UserRepository
	Storage        *StorageService
	Access         *AccessService
	DB             *gorm.DB
}

func NewSubmissionService(
	courseRepo *repository.CourseRepository,
	submissionRepo *repository.SubmissionRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
	accessService *AccessService,
	db *gorm.DB,
) *SubmissionService {
	return &SubmissionService{
		CourseRepo:     courseRepo,
		SubmissionRepo: submissionRepo,
		UserRepo:       userRepo,
		Storage:        storage,
		Access:         accessService,
		DB:             db,
	}
}

// submissionObjectKey 生成提交附件的存储对象名，重交不覆盖旧文件
func submissionObjectKey(assignmentID uint, originalName string) string {
	return fmt.Sprintf("submissions/%d/%s%s", assignmentID, uuid.New().String(), filepath.Ext(originalName))
}

// SubmitAssignment 提交（或重交）作业。附件可选，经存储服务落盘后记 URL。
// 提交成功即满足进度门槛，无需等待批改。
func (s *SubmissionService) SubmitAssignment(ctx context.Context, userID, assignmentID uint, content string, file *multipart.FileHeader) (*model.AssignmentSubmission, error) {
	_, lesson, err := s.CourseRepo.FindAssignment(ctx, assignmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, access.ErrTargetNotFound
		}
		return nil, err
	}

	fileURL := ""
	if file != nil {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer src.Close()

		allowed := []string{util.MimePDF, util.MimeImage, "text/plain", "application/zip", util.MimeOctetStream}
		if _, err := util.ValidateMimeType(src, allowed); err != nil {
			return nil, fmt.Errorf("非法的文件内容: %w", err)
		}
		if err := util.RewindFile(src); err != nil {
			return nil, err
		}

		fileURL, err = s.Storage.Upload(ctx, submissionObjectKey(assignmentID, file.Filename), src, file.Size, file.Header.Get("Content-Type"))
		if err != nil {
			return nil, err
		}
	}

	sub := &model.AssignmentSubmission{
		AssignmentID: assignmentID,
		UserID:       userID,
		Content:      content,
		FileURL:      fileURL,
		Status:       model.SubmissionPending,
	}
	if err := s.SubmissionRepo.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	course, err := s.CourseRepo.CourseForTarget(ctx, access.LessonTarget(lesson.ID))
	if err == nil {
		s.Access.Invalidate(ctx, userID, course.ID)
	}

	return sub, nil
}

func (s *SubmissionService) ListByAssignment(ctx context.Context, assignmentID uint) ([]model.AssignmentSubmission, error) {
	return s.SubmissionRepo.ListByAssignment(ctx, assignmentID)
}

// ReviewSubmission 批改：状态置为 returned 或 graded，附反馈。
// 首次判为 graded 时在同一事务内给学习者加作业积分：
// 这是积分账本的“入账”协作方，扣减只存在于解锁事务。
// 退回（returned）不会重新锁住后续内容：进度门槛只看提交行存在性。
func (s *SubmissionService) ReviewSubmission(ctx context.Context, graderID, submissionID uint, status model.SubmissionStatus, feedback string, now time.Time) (*model.AssignmentSubmission, error) {
	if status != model.SubmissionReturned && status != model.SubmissionGraded {
		return nil, util.ErrInvalidSubmissionStatus
	}

	var out model.AssignmentSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.AssignmentSubmission
		if err := tx.First(&sub, submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrSubmissionNotFound
			}
			return err
		}

		wasGraded := sub.Status == model.SubmissionGraded

		sub.Status = status
		sub.Feedback = feedback
		sub.GraderID = &graderID
		if status == model.SubmissionGraded {
			sub.GradedAt = &now
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		if status == model.SubmissionGraded && !wasGraded {
			var assignment model.Assignment
			if err := tx.First(&assignment, sub.AssignmentID).Error; err != nil {
				return err
			}
			if assignment.Points > 0 {
				res := tx.Model(&model.User{}).
					Where("id = ?", sub.UserID).
					UpdateColumn("points", gorm.Expr("points + ?", assignment.Points))
				if res.Error != nil {
					return res.Error
				}
				var user model.User
				if err := tx.Select("points").First(&user, sub.UserID).Error; err != nil {
					return err
				}
				if err := tx.Create(&model.PointTransaction{
					UserID:       sub.UserID,
					Amount:       assignment.Points,
					Kind:         "assignment_reward",
					Reference:    fmt.Sprintf("submission:%d", sub.ID),
					BalanceAfter: user.Points,
				}).Error; err != nil {
					return err
				}
			}
		}

		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
