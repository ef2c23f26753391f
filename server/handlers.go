package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
)

// FindRequest is the body of POST /v1/find.
type FindRequest struct {
	Tags []tagfind.Tag `json:"tags"`
}

// BatchRequest is the body of POST /v1/find/batch.
type BatchRequest struct {
	Queries [][]tagfind.Tag `json:"queries"`
}

// BatchResponse is returned by POST /v1/find/batch.
type BatchResponse struct {
	Results []tagfind.Result `json:"results"`
}

// TagRequest is the body of POST /v1/vertices. An empty ID is replaced by a
// random UUID.
type TagRequest struct {
	ID   string        `json:"id"`
	Tags []tagfind.Tag `json:"tags"`
}

// TagResponse is returned by POST /v1/vertices.
type TagResponse struct {
	ID string `json:"id"`
}

// VertexResponse is returned by GET /v1/vertices/:id.
type VertexResponse struct {
	ID   string        `json:"id"`
	Tags []tagfind.Tag `json:"tags"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type handler struct {
	store   *tagfind.TagStore
	timeout time.Duration
	logger  *tagfind.Logger
}

func (h *handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "tagfind",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) find(c *gin.Context) {
	var req FindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.store.Find(ctx, req.Tags)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) findBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	results, err := h.store.FindAll(ctx, req.Queries)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchResponse{Results: results})
}

func (h *handler) tag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.store.Tag(ctx, graph.VertexID(req.ID), req.Tags); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, TagResponse{ID: req.ID})
}

func (h *handler) vertex(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := h.context(c)
	defer cancel()

	tags, ok, err := h.store.Tags(ctx, graph.VertexID(id))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "vertex " + id + " not found"})
		return
	}
	c.JSON(http.StatusOK, VertexResponse{ID: id, Tags: tags})
}

// badRequest answers a body that could not be decoded.
func (h *handler) badRequest(c *gin.Context, err error) {
	if errors.Is(err, tagfind.ErrInvalidPredicate) {
		h.fail(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
}

// fail writes err with the status its class maps to.
func (h *handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "route", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tagfind.ErrInvalidPredicate):
		return http.StatusBadRequest, "invalid_predicate"
	case errors.Is(err, tagfind.ErrNoTags):
		return http.StatusBadRequest, "no_tags"
	case errors.Is(err, tagfind.ErrReadOnly):
		return http.StatusMethodNotAllowed, "read_only"
	case errors.Is(err, tagfind.ErrUnsupported):
		return http.StatusNotImplemented, "unsupported"
	case errors.Is(err, tagfind.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "backend_unavailable"
	case errors.Is(err, tagfind.ErrExecutionTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "execution_timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
