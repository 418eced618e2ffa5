package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sort-voting/config"
	"sort-voting/internal/api/handler"
	"sort-voting/internal/api/middleware"
	"sort-voting/internal/model"
	"sort-voting/pkg/jwt"
	"sort-voting/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时黑名单与限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 用户模块
			authorized.POST("/users", middleware.RoleAuth(model.RoleAdmin), h.User.CreateUser)

			// 课程：选课名单与活动（课程内角色由 Service 层鉴权）
			courses := authorized.Group("/courses/:id")
			{
				courses.GET("/enrolments", h.Enrolment.ListEnrolments)
				courses.POST("/enrolments", h.Enrolment.Enrol)
				courses.DELETE("/enrolments/:userId", h.Enrolment.RemoveEnrolment)

				courses.GET("/activities", h.Activity.ListActivities)
				courses.POST("/activities", h.Activity.CreateActivity)
			}

			// 排序投票活动
			activities := authorized.Group("/activities/:id")
			{
				activities.GET("", h.Activity.GetActivity)
				activities.PUT("", h.Activity.UpdateActivity)
				activities.DELETE("", h.Activity.DeleteActivity)

				activities.GET("/ballot", h.Vote.GetBallot)
				activities.POST("/votes",
					middleware.RateLimit(rdb, cfg.Vote.SubmitRateLimit, cfg.Vote.SubmitRateWindow, logger),
					h.Vote.SubmitVote,
				)
				activities.DELETE("/responses", h.Vote.DeleteResponses)

				activities.GET("/results", h.Result.GetResults)
				activities.GET("/results/export", h.Result.ExportResponses)
			}
		}
	}

	return r
}
