package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"linkbrief/internal/pipeline"
)

const (
	DefaultRequestTimeout = 3 * time.Minute
	maxRequestBodyBytes   = 64 << 10
	shutdownTimeout       = 10 * time.Second
)

// Runner turns free text containing a link into a summary.
type Runner interface {
	Run(ctx context.Context, text string) (*pipeline.Result, error)
}

type summarizeRequest struct {
	Text string `json:"text" binding:"required"`
}

type summaryResponse struct {
	RequestID        string   `json:"request_id"`
	Category         string   `json:"category"`
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Author           string   `json:"author,omitempty"`
	KeyPoints        []string `json:"key_points"`
	ConciseSummary   string   `json:"concise_summary"`
	ProblemAddressed string   `json:"problem_addressed,omitempty"`
	ApproachTaken    string   `json:"approach_taken,omitempty"`
	Backend          string   `json:"backend"`
	Augmented        bool     `json:"augmented"`
}

type Server struct {
	runner         Runner
	requestTimeout time.Duration
	engine         *gin.Engine
	log            *slog.Logger
}

func New(runner Runner, requestTimeout time.Duration, log *slog.Logger) *Server {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		runner:         runner,
		requestTimeout: requestTimeout,
		engine:         gin.New(),
		log:            log,
	}

	s.engine.Use(gin.Recovery(), s.logRequests)

	s.engine.GET("/healthz", s.health)
	s.engine.POST("/v1/summaries", s.summarize)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) summarize(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)

	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a non-empty text field"})

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, req.Text)
	if err != nil {
		message := pipeline.GenericFailureMessage

		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			message = failure.UserMessage()
		}

		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": message})

		return
	}

	c.JSON(http.StatusOK, newSummaryResponse(res))
}

func newSummaryResponse(res *pipeline.Result) summaryResponse {
	title := res.Summary.Title
	if title == "" {
		title = res.Title
	}

	return summaryResponse{
		RequestID:        res.RequestID,
		Category:         res.Category.String(),
		URL:              res.URL,
		Title:            title,
		Author:           res.Author,
		KeyPoints:        res.Summary.KeyPoints,
		ConciseSummary:   res.Summary.ConciseSummary,
		ProblemAddressed: res.Summary.ProblemAddressed,
		ApproachTaken:    res.Summary.ApproachTaken,
		Backend:          res.Backend,
		Augmented:        res.Augmented,
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()

	c.Next()

	s.log.InfoContext(c.Request.Context(), "HTTP request is handled",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
		"clientIP", c.ClientIP())
}
