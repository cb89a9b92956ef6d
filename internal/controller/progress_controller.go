package controller

import (
	"errors"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/service"
	"opencourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// CompleteLesson godoc
// @Summary 标记课时完成
// @Description 幂等操作，重复调用不会产生额外副作用
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))
	if lessonID == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return
	}

	if err := c.ProgressService.MarkLessonComplete(ctx.Request.Context(), claims.UserID, lessonID, time.Now()); err != nil {
		if errors.Is(err, access.ErrTargetNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// CourseCompletion godoc
// @Summary 课程完成度
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/completion [get]
func (c *ProgressController) CourseCompletion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("id"))
	if courseID == 0 {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	completed, total, err := c.ProgressService.CourseCompletion(ctx.Request.Context(), claims.UserID, courseID)
	if err != nil {
		if errors.Is(err, access.ErrTargetNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"completed": completed, "total": total})
}
