package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/backup"
	"github.com/yonaskd/fleetms/config"
	"github.com/yonaskd/fleetms/controllers"
	"github.com/yonaskd/fleetms/gps"
	"github.com/yonaskd/fleetms/middleware"
	"github.com/yonaskd/fleetms/scan"
	"github.com/yonaskd/fleetms/storage"
	"github.com/yonaskd/fleetms/utils"
)

// Deps carries the long-lived services the controllers need beyond the
// database handle. Built once in main.
type Deps struct {
	Sessions   *gps.SessionStore
	Reconciler *gps.Reconciler
	Files      *storage.Store
	Scanner    *scan.Client
	Backups    *backup.Manager
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, deps Deps) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	vehicleController := controllers.NewVehicleController(db)
	gpsController := controllers.NewGPSController(db, deps.Sessions, deps.Reconciler, deps.Files)
	expenseController := controllers.NewExpenseController(db, deps.Files, deps.Scanner)
	inspectionController := controllers.NewInspectionController(db)
	adminController := controllers.NewAdminController(db)
	backupController := controllers.NewBackupController(deps.Backups)
	reportController := controllers.NewReportController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", middleware.AuthRequired(), middleware.AdminOnly(), authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	vehicles := api.Group("/vehicles", middleware.AuthRequired())
	vehicles.GET("", vehicleController.List)
	vehicles.GET("/:id", vehicleController.Get)
	vehicles.POST("", vehicleController.Create)
	vehicles.PUT("/:id", vehicleController.Update)
	vehicles.DELETE("/:id", middleware.AdminOnly(), vehicleController.Delete)

	gpsGroup := api.Group("/gps", middleware.AuthRequired())
	gpsGroup.POST("/uploads", gpsController.Upload)
	gpsGroup.GET("/sessions/:id", gpsController.GetSession)
	gpsGroup.PATCH("/sessions/:id/entries/:index", gpsController.UpdateEntry)
	gpsGroup.POST("/sessions/:id/confirm", gpsController.Confirm)
	gpsGroup.POST("/sessions/:id/cancel", gpsController.Cancel)
	gpsGroup.GET("/records", gpsController.ListRecords)
	gpsGroup.DELETE("/records/:id", gpsController.DeleteRecord)
	gpsGroup.POST("/records/bulk-delete", gpsController.BulkDelete)

	expenses := api.Group("/expenses", middleware.AuthRequired())
	expenses.GET("", expenseController.List)
	expenses.GET("/summary", expenseController.Summary)
	expenses.GET("/:id", expenseController.Get)
	expenses.POST("", expenseController.Create)
	expenses.POST("/scan-receipt", expenseController.ScanReceipt)
	expenses.PUT("/:id", expenseController.Update)
	expenses.DELETE("/:id", expenseController.Delete)

	inspections := api.Group("/inspections", middleware.AuthRequired())
	inspections.GET("", inspectionController.List)
	inspections.GET("/:id", inspectionController.Get)
	inspections.POST("", inspectionController.Create)
	inspections.DELETE("/:id", inspectionController.Delete)

	admin := api.Group("/admin", middleware.AuthRequired(), middleware.AdminOnly())
	admin.GET("/vendors", adminController.ListVendors)
	admin.POST("/vendors", adminController.CreateVendor)
	admin.PUT("/vendors/:id", adminController.UpdateVendor)
	admin.DELETE("/vendors/:id", adminController.DeleteVendor)
	admin.GET("/branches", adminController.ListBranches)
	admin.POST("/branches", adminController.CreateBranch)
	admin.PUT("/branches/:id", adminController.UpdateBranch)
	admin.DELETE("/branches/:id", adminController.DeleteBranch)
	admin.GET("/categories", adminController.ListCategories)
	admin.POST("/categories", adminController.CreateCategory)
	admin.PUT("/categories/:id", adminController.UpdateCategory)
	admin.DELETE("/categories/:id", adminController.DeleteCategory)
	admin.POST("/backups", backupController.Run)
	admin.GET("/backups", backupController.List)
	admin.GET("/backups/:name", backupController.Download)
	admin.POST("/backups/restore", backupController.Restore)

	reports := api.Group("/reports", middleware.AuthRequired())
	reports.GET("/expenses", reportController.Expenses)
	reports.GET("/gps", reportController.GPS)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
