// Package api serves the calendar, series and care task operations over
// HTTP with gin.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/carecal/internal/logging"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB             *gorm.DB
	Port           int
	Secret         string
	ShiftLookahead time.Duration
	Logger         logging.Logger
	Out            io.Writer
	Now            func() time.Time
}

func (o *StartOpts) defaults() {
	if o.Port <= 0 {
		o.Port = 8080
	}
	if o.Logger == nil {
		o.Logger = logging.Nop{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if opts.Secret == "" {
		return fmt.Errorf("api: jwt secret is required")
	}
	opts.defaults()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			opts.Logger.Warn("api shutdown", "error", err)
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on http://localhost:%d\n", opts.Port)
	}
	opts.Logger.Info("api started", "port", opts.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts StartOpts) *gin.Engine {
	opts.defaults()
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	h := &handlers{db: opts.DB, log: opts.Logger, now: opts.Now, lookahead: opts.ShiftLookahead}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", authMiddleware(opts.Secret))

	api.GET("/calendar", h.calendar)
	api.GET("/calendar.ics", h.calendarICS)

	api.GET("/series", h.listSeries)
	api.POST("/series", h.createSeries)
	api.GET("/series/:id", h.getSeries)
	api.POST("/series/:id/edit", h.editSeries)
	api.POST("/series/:id/cancel", h.cancelSeries)

	api.GET("/tasks", h.listTasks)
	api.POST("/tasks", h.createTask)
	api.POST("/tasks/:id/done", h.setTaskDone)
	api.PUT("/tasks/:id/details", h.updateTaskDetails)
	api.GET("/tasks/:id/activity", h.taskActivity)

	api.GET("/teams/:team/config", h.teamConfig)
	api.POST("/teams/:team/materialize", h.materialize)
	api.POST("/teams/:team/shifts", h.startShift)
	api.GET("/teams/:team/shifts/current", h.currentShift)
	api.POST("/shifts/:id/end", h.endShift)

	return router
}

type handlers struct {
	db        *gorm.DB
	log       logging.Logger
	now       func() time.Time
	lookahead time.Duration
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
