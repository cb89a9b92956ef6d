package app

import (
	"opencourse_backend/docs"
	"opencourse_backend/internal/config"
	"opencourse_backend/internal/middleware"
	"opencourse_backend/internal/model"
	"opencourse_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/profile", c.auth.UpdateProfile)
	rg.GET("/points", c.user.GetPoints)

	// 课程浏览与访问解析
	rg.GET("/courses", c.course.ListCourses)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.GET("/courses/:id/access", c.access.ResolveCourse)
	rg.GET("/courses/:id/completion", c.progress.CourseCompletion)

	// 解锁事务：唯一的状态变更入口
	rg.POST("/courses/unlock", c.access.UnlockEarly)

	// 学习进度与作业
	rg.POST("/lessons/:id/complete", c.progress.CompleteLesson)
	rg.POST("/assignments/:id/submit", c.submission.SubmitAssignment)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		// 课程编排
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)
		teacher.POST("/lessons/:id/video", c.course.UploadLessonVideo)

		// 批改
		teacher.GET("/assignments/:id/submissions", c.submission.ListSubmissions)
		teacher.POST("/submissions/:id/review", c.submission.ReviewSubmission)
	}
}
