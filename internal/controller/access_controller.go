package controller

import (
	"errors"
	"net/http"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/service"
	"opencourse_backend/internal/util"
	"opencourse_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AccessController struct {
	AccessService *service.AccessService
	UnlockService *service.UnlockService
}

func NewAccessController(accessService *service.AccessService, unlockService *service.UnlockService) *AccessController {
	return &AccessController{
		AccessService: accessService,
		UnlockService: unlockService,
	}
}

// ResolveCourse godoc
// @Summary 获取课程访问视图
// @Description 按当前用户的进度、解锁记录与服务器时间解析整棵课程树的锁定状态
// @Tags 课程访问
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=access.ResolvedCourse} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/access [get]
func (c *AccessController) ResolveCourse(ctx *gin.Context) {
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

	view, err := c.AccessService.ResolveCourse(ctx.Request.Context(), claims.UserID, courseID, time.Now())
	if err != nil {
		if errors.Is(err, access.ErrTargetNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, view)
}

// UnlockRequest 解锁请求体，chapterId 与 lessonId 必须恰好填写一个
// swagger:model UnlockRequest
type UnlockRequest struct {
	ChapterID *uint `json:"chapterId"`
	LessonID  *uint `json:"lessonId"`
}

func (r UnlockRequest) target() (access.Target, error) {
	switch {
	case r.ChapterID != nil && r.LessonID != nil:
		return access.Target{}, util.ErrInvalidUnlockTarget
	case r.ChapterID != nil:
		return access.ChapterTarget(*r.ChapterID), nil
	case r.LessonID != nil:
		return access.LessonTarget(*r.LessonID), nil
	default:
		return access.Target{}, util.ErrInvalidUnlockTarget
	}
}

// UnlockEarly godoc
// @Summary 花费积分提前解锁
// @Description 为尚未到发布时间的章节或课时支付积分解锁，重复解锁不二次扣费
// @Tags 课程访问
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body UnlockRequest true "解锁目标"
// @Success 200 {object} util.Response{data=service.UnlockResult} "解锁成功或已解锁"
// @Failure 400 {object} util.Response "目标参数错误"
// @Failure 402 {object} util.Response "积分不足"
// @Failure 404 {object} util.Response "目标不存在"
// @Failure 409 {object} util.Response "目标已可见或前置未满足"
// @Router /api/courses/unlock [post]
func (c *AccessController) UnlockEarly(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UnlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	target, err := req.target()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.UnlockService.UnlockEarly(ctx.Request.Context(), claims.UserID, target, time.Now())
	if err != nil {
		c.renderUnlockError(ctx, target, err)
		return
	}

	monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "ok").Inc()
	util.Success(ctx, result)
}

// renderUnlockError 将解锁事务的领域错误映射为 HTTP 状态码
func (c *AccessController) renderUnlockError(ctx *gin.Context, target access.Target, err error) {
	var insufficient *access.InsufficientPointsError
	var prereq *access.PrerequisiteError

	switch {
	case errors.As(err, &insufficient):
		monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "insufficient_points").Inc()
		util.ErrorWithData(ctx, http.StatusPaymentRequired, "积分不足", gin.H{
			"balance": insufficient.Balance,
			"price":   insufficient.Price,
		})
	case errors.As(err, &prereq):
		monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "prerequisites_not_met").Inc()
		util.ErrorWithData(ctx, http.StatusConflict, "前置课时尚未完成", gin.H{
			"blockingChapterId": prereq.BlockingChapterID,
			"blockingLessonId":  prereq.BlockingLessonID,
			"reason":            prereq.Reason,
		})
	case errors.Is(err, access.ErrAlreadyAvailable):
		monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "already_available").Inc()
		util.Error(ctx, http.StatusConflict, "目标已可见，无需解锁")
	case errors.Is(err, access.ErrTargetNotFound):
		monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "not_found").Inc()
		util.NotFound(ctx)
	default:
		monitoring.UnlockCounter.WithLabelValues(string(target.Kind()), "error").Inc()
		util.LogInternalError(ctx, err)
	}
}
