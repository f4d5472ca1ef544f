package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"docqa/src/core/rag"
	"docqa/src/log"
)

const (
	msgQueryRequired   = "Query is required"
	msgProcessFailed   = "Failed to process the query"
	msgTooManyRequests = "Too many requests"
)

// IndexInfo describes the index the handler answers from.
type IndexInfo struct {
	Chunks  int
	Backend string
}

// Options configures the query route. A zero RateLimit disables limiting.
type Options struct {
	RateLimit float64
	RateBurst int
}

type Handler struct {
	service rag.Service
	info    IndexInfo
	limiter *rate.Limiter
}

func NewHandler(service rag.Service, info IndexInfo, opts Options) *Handler {
	h := &Handler{
		service: service,
		info:    info,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return h
}

// RegisterRoutes registers the query and health routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	if h.limiter != nil {
		api.Use(RateLimit(h.limiter))
	}
	api.POST("/query", h.Query)

	r.GET("/healthz", h.Health)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

// Query godoc
// @Summary Answer a question from the indexed document
// @Tags query
// @Accept json
// @Produce json
// @Param body body queryRequest true "Question"
// @Success 200 {object} queryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/query [post]
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		sendError(c, http.StatusBadRequest, msgQueryRequired)
		return
	}

	answer, err := h.service.Answer(c.Request.Context(), req.Query)
	if err != nil {
		log.Error(err, "failed to answer query",
			"kind", rag.KindOf(err).String(),
			"request_id", c.GetString(requestIDKey),
		)
		sendError(c, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	sendJSON(c, http.StatusOK, queryResponse{Answer: answer})
}

type healthResponse struct {
	Status  string `json:"status"`
	Chunks  int    `json:"chunks"`
	Backend string `json:"backend"`
}

// Health godoc
// @Summary Report readiness and index size
// @Tags system
// @Produce json
// @Success 200 {object} healthResponse
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	sendJSON(c, http.StatusOK, healthResponse{
		Status:  "ok",
		Chunks:  h.info.Chunks,
		Backend: h.info.Backend,
	})
}

func sendError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
