package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"opencourse_backend/internal/model"
	"opencourse_backend/internal/repository"
	"opencourse_backend/internal/util"

	"gorm.io/gorm"
)

// CourseService 课程著作端 CRUD（教师/管理员）。
// 课程结构是访问解析的只读输入，这里是它唯一的写入口。
type CourseService struct {
	CourseRepo *repository.CourseRepository
	Storage    *StorageService
	DB         *gorm.DB
}

func NewCourseService(courseRepo *repository.CourseRepository, storage *StorageService, db *gorm.DB) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		Storage:    storage,
		DB:         db,
	}
}

type AssignmentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

type LessonRequest struct {
	Title      string             `json:"title" binding:"required"`
	Position   int                `json:"position"`
	Content    string             `json:"content"`
	VideoURL   string             `json:"videoUrl"`
	ReleaseAt  *time.Time         `json:"releaseAt"`
	Assignment *AssignmentRequest `json:"assignment,omitempty"`
}

type ChapterRequest struct {
	Title     string          `json:"title" binding:"required"`
	Position  int             `json:"position"`
	ReleaseAt *time.Time      `json:"releaseAt"`
	Lessons   []LessonRequest `json:"lessons"`
}

type CourseCreateRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	CoverURL    string           `json:"coverUrl"`
	IsPublished bool             `json:"isPublished"`
	Chapters    []ChapterRequest `json:"chapters"`
}

// validatePositions 章节内/课程内位置必须唯一，这是解析器的前置条件
func validatePositions(req CourseCreateRequest) error {
	chapterPos := map[int]bool{}
	for _, ch := range req.Chapters {
		if chapterPos[ch.Position] {
			return fmt.Errorf("duplicate chapter position %d", ch.Position)
		}
		chapterPos[ch.Position] = true

		lessonPos := map[int]bool{}
		for _, l := range ch.Lessons {
			if lessonPos[l.Position] {
				return fmt.Errorf("duplicate lesson position %d in chapter %q", l.Position, ch.Title)
			}
			lessonPos[l.Position] = true
		}
	}
	return nil
}

// CreateCourse 在单个事务内建出整棵课程树
func (s *CourseService) CreateCourse(ctx context.Context, creatorID uint, req CourseCreateRequest) (*model.Course, error) {
	if req.Title == "" {
		return nil, errors.New("title required")
	}
	if err := validatePositions(req); err != nil {
		return nil, err
	}

	var created *model.Course
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course := &model.Course{
			Title:       req.Title,
			Description: req.Description,
			CoverURL:    req.CoverURL,
			CreatorID:   creatorID,
			IsPublished: req.IsPublished,
		}
		if err := tx.Create(course).Error; err != nil {
			return err
		}

		if err := createChapters(tx, course.ID, req.Chapters); err != nil {
			return err
		}

		created = course
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.CourseRepo.FindWithContent(ctx, created.ID)
}

func createChapters(tx *gorm.DB, courseID uint, chapters []ChapterRequest) error {
	for _, chReq := range chapters {
		chapter := &model.Chapter{
			CourseID:  courseID,
			Title:     chReq.Title,
			Position:  chReq.Position,
			ReleaseAt: chReq.ReleaseAt,
		}
		if err := tx.Create(chapter).Error; err != nil {
			return err
		}

		for _, lReq := range chReq.Lessons {
			lesson := &model.Lesson{
				ChapterID: chapter.ID,
				Title:     lReq.Title,
				Position:  lReq.Position,
				Content:   lReq.Content,
				VideoURL:  lReq.VideoURL,
				ReleaseAt: lReq.ReleaseAt,
			}
			if err := tx.Create(lesson).Error; err != nil {
				return err
			}

			if lReq.Assignment != nil {
				assignment := &model.Assignment{
					LessonID:    lesson.ID,
					Title:       lReq.Assignment.Title,
					Description: lReq.Assignment.Description,
					Points:      lReq.Assignment.Points,
				}
				if err := tx.Create(assignment).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// UpdateCourse 更新标量字段并整树替换章节结构。
// 已有的完成/提交/解锁记录按 ID 关联，结构重建会使其指向失效，
// 所以著作端只应在发布前做大改。
func (s *CourseService) UpdateCourse(ctx context.Context, courseID uint, req CourseCreateRequest) (*model.Course, error) {
	if err := validatePositions(req); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"title":        req.Title,
			"description":  req.Description,
			"cover_url":    req.CoverURL,
			"is_published": req.IsPublished,
		}
		if err := tx.Model(&course).Updates(updates).Error; err != nil {
			return err
		}

		// 删旧章节（级联课时与作业），再按请求重建
		var chapterIDs []uint
		if err := tx.Model(&model.Chapter{}).Where("course_id = ?", courseID).Pluck("id", &chapterIDs).Error; err != nil {
			return err
		}
		if len(chapterIDs) > 0 {
			var lessonIDs []uint
			if err := tx.Model(&model.Lesson{}).Where("chapter_id IN ?", chapterIDs).Pluck("id", &lessonIDs).Error; err != nil {
				return err
			}
			if err := purgeChapters(tx, courseID, chapterIDs, lessonIDs); err != nil {
				return err
			}
		}

		return createChapters(tx, courseID, req.Chapters)
	})
	if err != nil {
		return nil, err
	}
	return s.CourseRepo.FindWithContent(ctx, courseID)
}

// purgeChapters 整树硬删章节结构。uniq_course_position / uniq_chapter_position
// 唯一索引同样覆盖软删行，软删后按原位置重建会撞唯一键，所以这里必须 Unscoped。
func purgeChapters(tx *gorm.DB, courseID uint, chapterIDs, lessonIDs []uint) error {
	if len(lessonIDs) > 0 {
		if err := tx.Unscoped().Where("lesson_id IN ?", lessonIDs).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Unscoped().Where("chapter_id IN ?", chapterIDs).Delete(&model.Lesson{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("course_id = ?", courseID).Delete(&model.Chapter{}).Error
}

func (s *CourseService) DeleteCourse(ctx context.Context, courseID uint) error {
	return s.CourseRepo.Delete(ctx, courseID)
}

func (s *CourseService) ListCourses(ctx context.Context, publishedOnly bool) ([]model.Course, error) {
	return s.CourseRepo.List(ctx, publishedOnly)
}

func (s *CourseService) GetCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	return s.CourseRepo.FindWithContent(ctx, courseID)
}

// UploadLessonVideo 上传课时视频：校验 MIME，经存储服务落盘，
// 用 ffprobe 读时长后回写课时
func (s *CourseService) UploadLessonVideo(ctx context.Context, lessonID uint, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream}); err != nil {
		return nil, fmt.Errorf("非法的视频文件: %w", err)
	}
	if err := util.RewindFile(src); err != nil {
		return nil, err
	}

	// 先落临时文件探测时长，再交存储服务
	tmp, err := os.CreateTemp("", "lesson_video_*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := tmp.ReadFrom(src)
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, err
	}

	if info, err := util.GetVideoInfo(tmp.Name()); err == nil {
		lesson.DurationSeconds = info.Duration
	}

	filename := fmt.Sprintf("lessons/%d/%s%s", lessonID, time.Now().Format("20060102150405"), filepath.Ext(file.Filename))
	url, err := s.Storage.Upload(ctx, filename, tmp, size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	lesson.VideoURL = url
	if err := s.CourseRepo.SaveLesson(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}
