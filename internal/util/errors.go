package util

import "errors"

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrEmailRegistered         = errors.New("该邮箱已被注册")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrCourseNotFound          = errors.New("course not found")
	ErrLessonNotFound          = errors.New("lesson not found")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")
	ErrInvalidFileType         = errors.New("invalid file type")
	ErrInvalidUnlockTarget     = errors.New("unlock target must be exactly one of chapterId or lessonId")
)
