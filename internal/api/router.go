package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/config"
	"github.com/jengzang/ifta-backend-go/internal/handler"
	"github.com/jengzang/ifta-backend-go/internal/middleware"
	"github.com/jengzang/ifta-backend-go/internal/service"
)

// Services bundles the services exposed over HTTP
type Services struct {
	Trips    *service.TripService
	Tracking *service.TrackingService
	Fuel     *service.FuelService
	TaxRates *service.TaxRateService
	Reports  *service.ReportService
	Tasks    *service.AnalysisTaskService
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc Services, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if cfg.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "IFTA Backend API is running",
		})
	})

	tripHandler := handler.NewTripHandler(svc.Trips, svc.Tracking)
	trackingHandler := handler.NewTrackingHandler(svc.Tracking)
	fuelHandler := handler.NewFuelHandler(svc.Fuel)
	taxRateHandler := handler.NewTaxRateHandler(svc.TaxRates)
	reportHandler := handler.NewReportHandler(svc.Reports)
	taskHandler := handler.NewAnalysisTaskHandler(svc.Tasks)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 行程与实时追踪
		trips := api.Group("/trips")
		{
			trips.GET("", tripHandler.GetTrips)
			trips.GET("/active", tripHandler.GetActiveTrip)
			trips.POST("/start", trackingHandler.StartTrip)
			trips.GET("/:id", tripHandler.GetTripByID)
			trips.GET("/:id/route", tripHandler.GetRoute)
			trips.GET("/:id/route.kml", tripHandler.GetRouteKML)
			trips.DELETE("/:id", tripHandler.DeleteTrip)

			session := trips.Group("/:id", middleware.Session(svc.Tracking))
			session.POST("/fixes", trackingHandler.RecordFix)
			session.POST("/stop", trackingHandler.StopTrip)
		}

		// 加油记录
		fuel := api.Group("/fuel-purchases")
		{
			fuel.POST("", fuelHandler.CreatePurchase)
			fuel.GET("", fuelHandler.ListPurchases)
			fuel.GET("/:id", fuelHandler.GetPurchase)
			fuel.DELETE("/:id", fuelHandler.DeletePurchase)
		}

		// 税率
		rates := api.Group("/tax-rates")
		{
			rates.GET("", taxRateHandler.GetRates)
			rates.GET("/:jurisdiction", taxRateHandler.GetHistory)
			rates.PUT("/:jurisdiction", taxRateHandler.SetRate)
		}

		// 季度报表
		reports := api.Group("/reports")
		{
			reports.GET("/quarterly", reportHandler.GetQuarterly)
			reports.GET("/quarterly.csv", reportHandler.GetQuarterlyCSV)
		}

		api.GET("/jurisdictions", handler.ListJurisdictions)

		// 重算任务
		analysis := api.Group("/analysis")
		{
			analysis.POST("/tasks", taskHandler.CreateTask)
			analysis.GET("/tasks", taskHandler.ListTasks)
			analysis.GET("/tasks/:id", taskHandler.GetTask)
			analysis.DELETE("/tasks/:id", taskHandler.CancelTask)
			analysis.POST("/trigger-chain", taskHandler.TriggerAnalysisChain)
		}
	}

	return r
}
