package model

import "time"

// EarlyUnlock 提前解锁记录：指向章节或课时二选一，永不同时。
// (UserID, ChapterID) 与 (UserID, LessonID) 分别唯一，
// 同一目标重复解锁只会更新记录，不会产生第二行。
type EarlyUnlock struct {
	BaseModel
	UserID      uint      `gorm:"not null;uniqueIndex:uniq_unlock_user_chapter;uniqueIndex:uniq_unlock_user_lesson" json:"userId"`
	ChapterID   *uint     `gorm:"uniqueIndex:uniq_unlock_user_chapter" json:"chapterId"`
	LessonID    *uint     `gorm:"uniqueIndex:uniq_unlock_user_lesson" json:"lessonId"`
	PointsSpent int       `gorm:"not null" json:"pointsSpent"`
	UnlockedAt  time.Time `gorm:"not null" json:"unlockedAt"`
}
