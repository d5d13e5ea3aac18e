package inject

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsProvider supplies the §4.11 observability surface for GET /metrics.
type MetricsProvider interface {
	Snapshot() map[string]any
}

// Server exposes the §6.1 HTTP surface using gin, the teacher's web
// framework of choice (core/live2d/http_handler.go).
type Server struct {
	intake  *Intake
	metrics MetricsProvider
	service string
}

// NewServer constructs a Server. service names the process for the health
// probe's {service, status} body.
func NewServer(intake *Intake, metrics MetricsProvider, service string) *Server {
	return &Server{intake: intake, metrics: metrics, service: service}
}

// Register attaches the routes to an existing gin engine/group.
func (s *Server) Register(r gin.IRouter) {
	r.POST("/inject", s.handleInject)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
}

type injectRequest struct {
	KeyID      string    `json:"key_id" binding:"required"`
	Label      string    `json:"label" binding:"required"`
	Vector     []float64 `json:"vector" binding:"required"`
	Salience   float64   `json:"salience"`
	ReceivedAt time.Time `json:"received_at" binding:"required"`
	Signature  string    `json:"signature" binding:"required"`
}

func (s *Server) handleInject(c *gin.Context) {
	var req injectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.intake.Inject(c.Request.Context(), Request{
		KeyID:      req.KeyID,
		Label:      req.Label,
		Vector:     req.Vector,
		Salience:   req.Salience,
		ReceivedAt: req.ReceivedAt,
		Signature:  req.Signature,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        result.Status,
		"id":            result.ID,
		"entropy_delta": result.EntropyDelta,
		"reason":        result.Reason,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": s.service, "status": "ok"})
}

func (s *Server) handleMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}
