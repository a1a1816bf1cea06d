// internal/api/api.go
// Package api is the web front-end adapter: a thin echo server translating
// HTTP requests into the collector core's operations. It holds no labeling
// state of its own.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ecosort/collector-go/internal/camera"
	"github.com/ecosort/collector-go/internal/collector"
	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/logging"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	Collector *collector.Collector
	Source    camera.Source
	Settings  *conf.Settings

	apiLogger *slog.Logger
}

// New creates the API controller and registers all routes.
func New(settings *conf.Settings, core *collector.Collector, source camera.Source) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:      e,
		Collector: core,
		Source:    source,
		Settings:  settings,
		apiLogger: logging.ForService("api"),
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/state", c.GetState)
	c.Group.GET("/schemas", c.GetSchemas)
	c.Group.GET("/frame", c.GetFrame)
	c.Group.GET("/statistics", c.GetStatistics)

	c.Group.POST("/class", c.SetClass)
	c.Group.POST("/attributes", c.UpdateAttribute)
	c.Group.POST("/reset", c.ResetAttributes)
	c.Group.POST("/commit", c.CommitSample)
	c.Group.POST("/export", c.ExportAll)
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (c *Controller) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Echo.Start(":" + c.Settings.WebServer.Port)
	}()

	c.apiLogger.Info("web server started", "port", c.Settings.WebServer.Port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.Echo.Shutdown(shutdownCtx)
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
