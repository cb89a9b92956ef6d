package access

import (
	"errors"
	"fmt"
)

// 解锁事务的错误分类，均可用 errors.Is 判别。
// 全部作为返回值传出，不跨层 panic。
var (
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrAlreadyAvailable    = errors.New("content already available")
	ErrPrerequisitesNotMet = errors.New("prerequisites not met")
	ErrTargetNotFound      = errors.New("unlock target not found")
)

// InsufficientPointsError 余额不足的结构化错误
type InsufficientPointsError struct {
	Balance int
	Price   int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, price %d", e.Balance, e.Price)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// PrerequisiteError 携带第一个未满足的前置课时及其章节，供前端深链
type PrerequisiteError struct {
	BlockingChapterID uint
	BlockingLessonID  uint
	Reason            string // "incomplete" 或 "assignment_missing"
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisites not met: lesson %d in chapter %d is %s",
		e.BlockingLessonID, e.BlockingChapterID, e.Reason)
}

func (e *PrerequisiteError) Unwrap() error {
	return ErrPrerequisitesNotMet
}

// IsClientError 判断错误是否由客户端请求状态导致（可恢复，非 5xx）
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrAlreadyAvailable) ||
		errors.Is(err, ErrPrerequisitesNotMet) ||
		errors.Is(err, ErrTargetNotFound)
}
