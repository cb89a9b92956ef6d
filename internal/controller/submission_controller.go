package controller

import (
	"errors"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"
	"opencourse_backend/internal/service"
	"opencourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// SubmitAssignment godoc
// @Summary 提交作业
// @Description 提交文本与可选附件，重复提交覆盖旧内容。提交即满足进度门槛
// @Tags 作业
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Param   content formData string false "文本内容"
// @Param   file formData file false "附件"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 400 {object} util.Response "附件类型不支持"
// @Failure 404 {object} util.Response "作业不存在"
// @Router /api/assignments/{id}/submit [post]
func (c *SubmissionController) SubmitAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assignmentID := util.MustParseUint(ctx.Param("id"))
	if assignmentID == 0 {
		util.BadRequest(ctx, "invalid assignment id")
		return
	}

	content := ctx.PostForm("content")
	file, _ := ctx.FormFile("file")
	if content == "" && file == nil {
		util.BadRequest(ctx, "content or file is required")
		return
	}

	sub, err := c.SubmissionService.SubmitAssignment(ctx.Request.Context(), claims.UserID, assignmentID, content, file)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrTargetNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidFileType):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, sub)
}

// ListSubmissions godoc
// @Summary 作业提交列表
// @Description 教师查看某作业下的全部提交
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]model.AssignmentSubmission} "成功"
// @Router /api/assignments/{id}/submissions [get]
func (c *SubmissionController) ListSubmissions(ctx *gin.Context) {
	assignmentID := util.MustParseUint(ctx.Param("id"))
	if assignmentID == 0 {
		util.BadRequest(ctx, "invalid assignment id")
		return
	}

	subs, err := c.SubmissionService.ListByAssignment(ctx.Request.Context(), assignmentID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, subs)
}

// ReviewRequest 批改请求体
type ReviewRequest struct {
	Status   string `json:"status" binding:"required,oneof=returned graded"`
	Feedback string `json:"feedback"`
}

// ReviewSubmission godoc
// @Summary 批改作业
// @Description 将提交置为 returned 或 graded，首次 graded 时发放作业积分
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Param   body body ReviewRequest true "批改结果"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 400 {object} util.Response "状态非法"
// @Failure 404 {object} util.Response "提交不存在"
// @Router /api/submissions/{id}/review [post]
func (c *SubmissionController) ReviewSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submissionID := util.MustParseUint(ctx.Param("id"))
	if submissionID == 0 {
		util.BadRequest(ctx, "invalid submission id")
		return
	}

	var req ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.ReviewSubmission(
		ctx.Request.Context(), claims.UserID, submissionID, model.SubmissionStatus(req.Status), req.Feedback, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSubmissionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidSubmissionStatus):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, sub)
}
