package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionReturned SubmissionStatus = "returned"
	SubmissionGraded   SubmissionStatus = "graded"
)

// AssignmentSubmission 作业提交，(UserID, AssignmentID) 唯一。
// 进度判定只看提交记录是否存在，Status 仅用于批改流程。
// swagger:model AssignmentSubmission
type AssignmentSubmission struct {
	BaseModel
	AssignmentID uint             `gorm:"not null;uniqueIndex:uniq_assignment_user" json:"assignmentId"`
	UserID       uint             `gorm:"not null;uniqueIndex:uniq_assignment_user" json:"userId"`
	Content      string           `gorm:"type:text" json:"content"`
	FileURL      string           `gorm:"size:255" json:"fileUrl"`
	Status       SubmissionStatus `gorm:"type:enum('pending','returned','graded');default:'pending'" json:"status"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	GraderID     *uint            `json:"graderId"`
	GradedAt     *time.Time       `json:"gradedAt"`
}
