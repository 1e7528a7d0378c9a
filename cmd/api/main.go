package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transportal/internal/appointment"
	"transportal/internal/auth"
	"transportal/internal/config"
	"transportal/internal/handler"
	"transportal/internal/httpmiddleware"
	"transportal/internal/queue"
	"transportal/internal/reporting"
	"transportal/internal/shift"
	"transportal/internal/store"
	"transportal/internal/student"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	students := student.NewRepository(db.Client)
	shifts := shift.NewRepository(db.Client)
	scans := shift.NewService(shifts, students, q)
	appts := appointment.NewService(appointment.NewRepository(db.Client), students, cfg.Location())
	reports := reporting.NewService(reporting.NewRepository(db.Client))

	h := handler.New(shifts, scans, appts, students, reports, redisClient,
		cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL, cfg.TodayCacheTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())
	r.Use(httpmiddleware.RequestDeadline(cfg.RequestTimeout))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", h.IssueToken)

	v1 := r.Group("/v1", auth.SupervisorAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.POST("/shifts", h.OpenShift)
	v1.POST("/shifts/close", h.CloseShift)
	v1.POST("/shifts/scan", h.ScanShift)
	v1.GET("/shifts", h.ListShifts)
	v1.GET("/shifts/current", h.CurrentShift)

	v1.POST("/attendance/scan-qr", h.ScanQR)
	v1.POST("/attendance/mark-absent", h.MarkAbsent)
	v1.PUT("/attendance/update/:id", h.UpdateAttendance)
	v1.DELETE("/attendance/delete/:id", h.DeleteAttendance)
	v1.GET("/attendance/records", h.ListAttendance)
	v1.GET("/attendance/today", h.Today)
	v1.GET("/attendance/all-records", h.AllRecords)

	v1.GET("/students", h.ListStudents)
	v1.GET("/students/:id", h.GetStudent)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
