package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/ransomware-scanner/internal/core"
	"github.com/mikey/ransomware-scanner/internal/utils"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for multipart framing on top of the file itself
const multipartOverhead = 1 << 20

// Config holds the HTTP frontend settings
type Config struct {
	ListenAddress string
	StaticDir     string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
	MaxFileSize   int64
}

// Server implements the HTTP API and serves the static frontend
type Server struct {
	service   *core.ScanService
	sanitizer *utils.FilenameSanitizer
	logger    *zap.Logger
	cfg       Config
	engine    *gin.Engine
	server    *http.Server
}

// errorResponse is the body of every failed API request
type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// healthResponse is the body of GET /health
type healthResponse struct {
	Status string         `json:"status"`
	Model  core.ModelInfo `json:"model"`
}

// NewServer creates a new HTTP frontend
func NewServer(
	service *core.ScanService,
	sanitizer *utils.FilenameSanitizer,
	logger *zap.Logger,
	cfg Config,
) *Server {
	s := &Server{
		service:   service,
		sanitizer: sanitizer,
		logger:    logger,
		cfg:       cfg,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(logger), CORS(cfg.CORSOrigins))

	engine.GET("/health", s.handleHealth)
	api := engine.Group("/api")
	{
		api.POST("/scan_file", s.handleScanFile)
		api.GET("/logs", s.handleLogs)
	}
	engine.NoRoute(s.handleStatic)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts listening. Bind errors are returned, serve errors are logged.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP server starting",
		zap.String("address", listener.Addr().String()),
		zap.String("static_dir", s.cfg.StaticDir))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ProcessFile scans an in-memory file under its sanitized name
func (s *Server) ProcessFile(ctx context.Context, file core.RawFile) (*core.ScanResult, error) {
	file.Name = s.sanitizer.SanitizeOrDefault(file.Name)
	return s.service.Scan(ctx, file)
}

func (s *Server) handleScanFile(c *gin.Context) {
	if s.cfg.MaxFileSize > 0 {
		limit := s.cfg.MaxFileSize + multipartOverhead
		if c.Request.ContentLength > limit {
			s.respondError(c, http.StatusRequestEntityTooLarge, core.ErrFileTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.respondError(c, http.StatusRequestEntityTooLarge, core.ErrFileTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			c.JSON(http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
		default:
			c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Invalid upload: %v", err)})
		}
		return
	}

	filename := s.sanitizer.Sanitize(header.Filename)
	if filename == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Empty filename"})
		return
	}

	f, err := header.Open()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	result, err := s.service.ScanReader(c.Request.Context(), filename, f)
	if err != nil {
		s.respondError(c, statusForError(err), err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.History(c.Request.Context()))
}

func (s *Server) handleHealth(c *gin.Context) {
	info := s.service.Model()
	status := "ok"
	if !info.Available {
		status = "degraded"
	}
	c.JSON(http.StatusOK, healthResponse{Status: status, Model: info})
}

func (s *Server) handleStatic(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || s.cfg.StaticDir == "" ||
		(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
		return
	}

	c.FileFromFS(path, http.Dir(s.cfg.StaticDir))
}

// respondError writes err as JSON, exposing the failed stage and error kind of scan errors
func (s *Server) respondError(c *gin.Context, status int, err error) {
	_ = c.Error(err)

	resp := errorResponse{Error: err.Error()}
	var scanErr *core.ScanError
	if errors.As(err, &scanErr) {
		resp.Stage = string(scanErr.Stage)
		if errors.Is(scanErr.Err, core.ErrFileTooLarge) {
			resp.Kind = core.ErrFileTooLarge.Error()
		} else if scanErr.Kind != nil {
			resp.Kind = scanErr.Kind.Error()
		}
	}
	c.JSON(status, resp)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrSchemaMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
