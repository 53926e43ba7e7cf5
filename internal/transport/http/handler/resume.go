package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-ragger/internal/app"
	"resume-ragger/internal/model"
	"resume-ragger/internal/transport/http/response"
	"resume-ragger/internal/vectorstore"
)

const maxPDFSize = 10 << 20 // 10 MB

type ResumeSearcher interface {
	Hits(ctx context.Context, query string, limit int) ([]vectorstore.Hit, error)
	Count(ctx context.Context) (int, error)
	Collection() string
}

type ResumeIngester interface {
	IngestReader(ctx context.Context, name string, r io.Reader) (*app.IngestResult, error)
}

type RunLister interface {
	ListRecent(collection string, limit int) ([]model.IngestRun, error)
}

type ResumeHandler struct {
	index        ResumeSearcher
	ingest       ResumeIngester
	runs         RunLister
	defaultLimit int
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

type searchHit struct {
	ID    uint64  `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

// NewResumeHandler builds the resume API. runs may be nil when no run store is configured.
func NewResumeHandler(index ResumeSearcher, ingest ResumeIngester, runs RunLister, defaultLimit int) *ResumeHandler {
	if defaultLimit < 1 {
		defaultLimit = 3
	}
	return &ResumeHandler{
		index:        index,
		ingest:       ingest,
		runs:         runs,
		defaultLimit: defaultLimit,
	}
}

func (h *ResumeHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}

	hits, err := h.index.Hits(c.Request.Context(), req.Query, limit)
	if err != nil {
		writeAppError(c, err, "search failed")
		return
	}

	texts := make([]string, 0, len(hits))
	out := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text())
		out = append(out, searchHit{ID: hit.ID, Score: hit.Score, Text: hit.Text()})
	}
	response.OK(c, gin.H{
		"collection": h.index.Collection(),
		"results":    texts,
		"hits":       out,
	})
}

// Upload accepts a multipart form with a "file" PDF and indexes it.
func (h *ResumeHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	result, err := h.ingest.IngestReader(c.Request.Context(), filepath.Base(file.Filename), f)
	if err != nil {
		writeAppError(c, err, "ingest failed")
		return
	}
	response.OK(c, result)
}

func (h *ResumeHandler) Stats(c *gin.Context) {
	n, err := h.index.Count(c.Request.Context())
	if err != nil {
		writeAppError(c, err, "count failed")
		return
	}
	response.OK(c, gin.H{
		"collection": h.index.Collection(),
		"points":     n,
	})
}

func (h *ResumeHandler) Runs(c *gin.Context) {
	if h.runs == nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "ingest run history is not enabled")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.ListRecent(h.index.Collection(), limit)
	if err != nil {
		log.Printf("list ingest runs failed: %v", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list runs failed")
		return
	}
	response.OK(c, runs)
}

func writeAppError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrExtraction):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text from PDF")
	case errors.Is(err, app.ErrIngestBusy):
		response.Error(c, http.StatusConflict, response.CodeIngestBusy, err.Error())
	case errors.Is(err, app.ErrSetup), errors.Is(err, app.ErrEmbedding), errors.Is(err, app.ErrStorage):
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, fallback)
	default:
		log.Printf("%s: %v", fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
