package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shelfmate/backend/config"
	"shelfmate/backend/internal/api/handler"
	"shelfmate/backend/internal/api/middleware"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/pkg/jwt"
	"shelfmate/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录注册限流）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Register)
			auth.POST("/login", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.User.GetUser)
				users.PUT("/:id", middleware.RoleAuth(model.RoleAdmin), h.User.UpdateUser)
				users.PUT("/:id/role", middleware.RoleAuth(model.RoleAdmin), h.User.AssignRole)
				users.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.User.DeleteUser)
			}

			// 分类模块（查询开放，写操作馆员以上）
			categories := authorized.Group("/categories")
			{
				categories.GET("", h.Category.ListCategories)
				categories.GET("/:id", h.Category.GetCategory)
				categories.POST("", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Category.CreateCategory)
				categories.PUT("/:id", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Category.UpdateCategory)
				categories.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Category.DeleteCategory)
			}

			// 图书模块（查询开放，写操作馆员以上）
			books := authorized.Group("/books")
			{
				books.GET("", h.Book.ListBooks)
				books.GET("/:id", h.Book.GetBook)
				books.POST("", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Book.CreateBook)
				books.PUT("/:id", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Book.UpdateBook)
				books.PUT("/:id/copies", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Book.AddCopies)
				books.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Book.DeleteBook)
			}

			// 借阅模块
			borrowings := authorized.Group("/borrowings")
			{
				borrowings.POST("", h.Borrowing.CreateRequest)
				borrowings.GET("/my", h.Borrowing.ListMyRequests)
				borrowings.GET("", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Borrowing.ListRequests)
				borrowings.GET("/:id", h.Borrowing.GetRequest) // member 仅本人（Service 层鉴权）
				borrowings.PUT("/:id/status", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Borrowing.UpdateStatus)
				borrowings.PUT("/details/:id/extend", h.Borrowing.ExtendDetail)
				borrowings.PUT("/details/:id/return", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Borrowing.ReturnDetail)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/borrowings", middleware.RoleAuth(model.RoleAdmin, model.RoleLibrarian), h.Export.ExportBorrowingRecords)
				export.GET("/calendar", h.Export.ExportDueDateCalendar)
			}
		}
	}

	return r
}
