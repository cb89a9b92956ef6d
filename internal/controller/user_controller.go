package controller

import (
	"opencourse_backend/internal/service"
	"opencourse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// GetPoints godoc
// @Summary 积分余额与流水
// @Description 返回当前余额与最近的积分变动记录
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PointsSummary} "成功"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/points [get]
func (c *UserController) GetPoints(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.UserService.Points(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}
