package api

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deskhud/internal/frame"
	"deskhud/internal/logging"
	"deskhud/internal/raster"
)

// FrameSource builds a frame on demand.
type FrameSource interface {
	Assemble(ctx context.Context, now time.Time) (*frame.Frame, error)
}

// LatestFrames reports the collector's state.
type LatestFrames interface {
	GetLatestFrame() *frame.Frame
	IsCollecting() bool
}

// BrokerStatus reports whether the MQTT publisher holds a live connection.
type BrokerStatus interface {
	IsConnected() bool
}

type Server struct {
	router    *gin.Engine
	server    *http.Server
	frames    FrameSource
	collector LatestFrames
	broker    BrokerStatus
	port      int
	clock     func() time.Time
	log       *slog.Logger
}

type ServerConfig struct {
	Port      int
	Frames    FrameSource
	Collector LatestFrames
	// Broker is nil when MQTT publishing is disabled.
	Broker BrokerStatus
	Clock  func() time.Time
	Logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	log := logging.Component(cfg.Logger, "api")
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Server{
		router:    router,
		frames:    cfg.Frames,
		collector: cfg.Collector,
		broker:    cfg.Broker,
		port:      cfg.Port,
		clock:     clock,
		log:       log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.rootHandler)
	s.router.HEAD("/", s.rootHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/info", s.infoHandler)
		api.GET("/preview/:widget", s.previewHandler)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("API server starting", "port", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "DeskHUD Backend API"})
}

func (s *Server) healthHandler(c *gin.Context) {
	collecting := false
	var lastVersion uint32
	var lastAt time.Time
	if s.collector != nil {
		collecting = s.collector.IsCollecting()
		if f := s.collector.GetLatestFrame(); f != nil {
			lastVersion = f.Version
			lastAt = f.GeneratedAt
		}
	}

	body := gin.H{
		"status":     "healthy",
		"collecting": collecting,
		"timestamp":  s.clock(),
	}
	if lastVersion != 0 {
		body["last_frame_version"] = lastVersion
		body["last_frame_at"] = lastAt
	}
	if s.broker != nil {
		body["mqtt_connected"] = s.broker.IsConnected()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) infoHandler(c *gin.Context) {
	f, err := s.frames.Assemble(c.Request.Context(), s.clock())
	if err != nil {
		s.log.Warn("frame assembly failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f.Info())
}

// previewHandler renders one widget as PNG, decoded from the same packed
// payload the panel receives. It reuses the collector's latest frame when
// there is one.
func (s *Server) previewHandler(c *gin.Context) {
	var f *frame.Frame
	if s.collector != nil {
		f = s.collector.GetLatestFrame()
	}
	if f == nil {
		var err error
		f, err = s.frames.Assemble(c.Request.Context(), s.clock())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	}

	name := c.Param("widget")
	packed, ok := f.Packed[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown widget %q", name)})
		return
	}
	canvas, err := raster.Unpack(packed)
	if err != nil {
		s.log.Error("unpack preview failed", "widget", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, canvas.Gray()); err != nil {
		s.log.Warn("encode preview failed", "widget", name, "error", err)
	}
}
