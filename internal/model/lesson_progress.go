package model

import "time"

// LessonProgress 课时完成记录，(UserID, LessonID) 唯一。
// 由“标记完成”动作写入，访问解析只读。
type LessonProgress struct {
	BaseModel
	UserID      uint       `gorm:"not null;uniqueIndex:uniq_user_lesson_progress" json:"userId"`
	LessonID    uint       `gorm:"not null;uniqueIndex:uniq_user_lesson_progress" json:"lessonId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}
