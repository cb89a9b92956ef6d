package model

import "time"

// Course 课程，按 Position 排序的章节序列
// swagger:model Course
type Course struct {
	BaseModel
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CoverURL    string    `gorm:"size:255" json:"coverUrl"`
	CreatorID   uint      `gorm:"index" json:"creatorId"`
	IsPublished bool      `gorm:"default:false" json:"isPublished"`
	Chapters    []Chapter `gorm:"constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

// Chapter 章节。Position 在课程内唯一；ReleaseAt 为空表示始终可见
type Chapter struct {
	BaseModel
	CourseID  uint       `gorm:"not null;uniqueIndex:uniq_course_position" json:"courseId"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Position  int        `gorm:"not null;uniqueIndex:uniq_course_position" json:"position"`
	ReleaseAt *time.Time `json:"releaseAt"`
	Lessons   []Lesson   `gorm:"constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson 课时。Position 在章节内唯一；最多携带一个作业
type Lesson struct {
	BaseModel
	ChapterID       uint        `gorm:"not null;uniqueIndex:uniq_chapter_position" json:"chapterId"`
	Title           string      `gorm:"size:200;not null" json:"title"`
	Position        int         `gorm:"not null;uniqueIndex:uniq_chapter_position" json:"position"`
	Content         string      `gorm:"type:text" json:"content"`
	VideoURL        string      `gorm:"size:255" json:"videoUrl"`
	DurationSeconds float64     `gorm:"default:0" json:"durationSeconds"`
	ReleaseAt       *time.Time  `json:"releaseAt"`
	Assignment      *Assignment `gorm:"constraint:OnDelete:CASCADE" json:"assignment,omitempty"`
}

// Assignment 课时作业，与课时一对一。Points 为批改通过后的积分奖励
type Assignment struct {
	BaseModel
	LessonID    uint   `gorm:"not null;uniqueIndex" json:"lessonId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Points      int    `gorm:"default:0" json:"points"`
}
