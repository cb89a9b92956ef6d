package repository

import (
	"context"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// FindWithContent 加载整棵课程树（章节、课时、作业），按 position 升序。
// 访问解析与解锁事务都吃这个读模型。
func (r *CourseRepository) FindWithContent(ctx context.Context, courseID uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("chapters.position ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.position ASC")
		}).
		Preload("Chapters.Lessons.Assignment").
		First(&course, courseID).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// CourseForTarget 根据解锁目标反查所属课程并加载整棵树。
// 目标不存在返回 access.ErrTargetNotFound。
func (r *CourseRepository) CourseForTarget(ctx context.Context, target access.Target) (*model.Course, error) {
	var courseID uint
	var err error

	switch target.Kind() {
	case access.TargetChapter:
		var ch model.Chapter
		err = r.DB.WithContext(ctx).Select("course_id").First(&ch, target.ID()).Error
		courseID = ch.CourseID
	case access.TargetLesson:
		err = r.DB.WithContext(ctx).
			Model(&model.Lesson{}).
			Select("chapters.course_id").
			Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
			Where("lessons.id = ?", target.ID()).
			Scan(&courseID).Error
		if err == nil && courseID == 0 {
			err = gorm.ErrRecordNotFound
		}
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, access.ErrTargetNotFound
		}
		return nil, err
	}

	return r.FindWithContent(ctx, courseID)
}

func (r *CourseRepository) FindByID(ctx context.Context, courseID uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, courseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, publishedOnly bool) ([]model.Course, error) {
	var courses []model.Course
	db := r.DB.WithContext(ctx).Order("id ASC")
	if publishedOnly {
		db = db.Where("is_published = ?", true)
	}
	if err := db.Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CourseRepository) Delete(ctx context.Context, courseID uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Course{}, courseID).Error
}

// FindLesson 加载单个课时（含作业）
func (r *CourseRepository) FindLesson(ctx context.Context, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Preload("Assignment").First(&lesson, lessonID).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *CourseRepository) SaveLesson(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Save(lesson).Error
}

// FindAssignment 加载作业及其课时
func (r *CourseRepository) FindAssignment(ctx context.Context, assignmentID uint) (*model.Assignment, *model.Lesson, error) {
	var assignment model.Assignment
	if err := r.DB.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		return nil, nil, err
	}
	var lesson model.Lesson
	if err := r.DB.WithContext(ctx).First(&lesson, assignment.LessonID).Error; err != nil {
		return nil, nil, err
	}
	return &assignment, &lesson, nil
}
