package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/genome-trait-server/internal/domain"
	"github.com/genome-trait-server/internal/genotype"
	"github.com/genome-trait-server/internal/queue"
)

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.JSON(status, domain.NewAPIError(code, message, details, c.GetString("request_id")))
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleCreateAnalysis accepts a genotype file upload, rejects unsupported
// formats up front, and queues the analysis.
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Missing genotype file", `multipart field "file" is required`)
		return
	}

	maxBytes := int64(s.upload.MaxFileSizeMB) << 20
	if fileHeader.Size > maxBytes {
		s.respondError(c, http.StatusRequestEntityTooLarge, domain.ErrCodeInvalidInput,
			"Genotype file too large",
			"limit is "+strconv.Itoa(s.upload.MaxFileSizeMB)+" MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to read upload", err.Error())
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to read upload", err.Error())
		return
	}
	content := string(raw)

	// Reject unsupported formats before queuing anything. The filename
	// hint alone never rejects; content is authoritative.
	if format := genotype.DetectFormat(content); format != domain.Format23AndMe {
		if format == domain.FormatUnknown {
			if hint := genotype.DetectFormatFromFilename(fileHeader.Filename); hint != domain.FormatUnknown && hint != domain.Format23AndMe {
				format = hint
			}
		}
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeUnsupportedFormat,
			"Unsupported genotype file format",
			"detected format: "+string(format))
		return
	}

	record := &domain.AnalysisRecord{
		ID:       uuid.New().String(),
		FileName: fileHeader.Filename,
		Status:   domain.StatusParsing,
	}
	if err := s.store.CreateAnalysis(c.Request.Context(), record); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to create analysis", err.Error())
		return
	}

	job := &queue.Job{
		AnalysisID: record.ID,
		FileName:   record.FileName,
		Content:    content,
	}
	if err := s.jobs.Enqueue(c.Request.Context(), job); err != nil {
		s.log.WithError(err).Error("Failed to enqueue analysis job")
		if updateErr := s.store.UpdateStatus(c.Request.Context(), record.ID, domain.StatusError, "failed to queue analysis"); updateErr != nil {
			s.log.WithError(updateErr).Error("Failed to mark unqueued analysis")
		}
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeInternalServer,
			"Failed to queue analysis", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     record.ID,
		"status": record.Status,
	})
}

// handleGetAnalysis returns status and, once completed, the summary.
func (s *Server) handleGetAnalysis(c *gin.Context) {
	id := c.Param("id")

	if s.cache != nil {
		if record, hit, err := s.cache.GetAnalysis(c.Request.Context(), id); err == nil && hit {
			c.JSON(http.StatusOK, record)
			return
		}
	}

	record, err := s.store.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
				"Analysis not found", id)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to load analysis", err.Error())
		return
	}

	if s.cache != nil {
		if err := s.cache.SetAnalysis(c.Request.Context(), record); err != nil {
			s.log.WithError(err).Debug("Analysis cache write failed")
		}
	}

	c.JSON(http.StatusOK, record)
}

// handleListCategories returns the curated categories of a finished run.
func (s *Server) handleListCategories(c *gin.Context) {
	id := c.Param("id")

	counts, err := s.store.ListCategories(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to list categories", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis_id": id,
		"categories":  counts,
	})
}

// handleGetCategoryPage serves one page of a category's associations, with
// an optional min_importance filter applied before counting.
func (s *Server) handleGetCategoryPage(c *gin.Context) {
	id := c.Param("id")
	category := c.Param("category")

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Invalid offset", c.Query("offset"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 200 {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Invalid limit", "limit must be in [1, 200]")
		return
	}

	var minImportance *float64
	if raw := c.Query("min_importance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
				"Invalid min_importance", raw)
			return
		}
		minImportance = &v
	}

	if s.cache != nil {
		if page, hit, err := s.cache.GetCategoryPage(c.Request.Context(), id, category, offset, limit, minImportance); err == nil && hit {
			c.JSON(http.StatusOK, page)
			return
		}
	}

	page, err := s.store.GetCategoryPage(c.Request.Context(), id, category, offset, limit, minImportance)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
				"Category not found", category)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to load category page", err.Error())
		return
	}

	if s.cache != nil {
		// The cache client only stores pages of terminal runs, so look up
		// the run's current status before writing.
		if record, err := s.store.GetAnalysis(c.Request.Context(), id); err == nil {
			if err := s.cache.SetCategoryPage(c.Request.Context(), id, record.Status, page, minImportance); err != nil {
				s.log.WithError(err).Debug("Category page cache write failed")
			}
		}
	}

	c.JSON(http.StatusOK, page)
}

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients are served from the same origin in both modes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const progressWriteTimeout = 10 * time.Second

// handleProgressSocket streams progress events for one analysis until the
// run reaches a terminal state or the client disconnects.
func (s *Server) handleProgressSocket(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
				"Analysis not found", id)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to load analysis", err.Error())
		return
	}

	conn, err := progressUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	events, err := s.progress.Subscribe(ctx, id)
	if err != nil {
		s.log.WithError(err).Error("Progress subscription failed")
		return
	}

	// Send the current state first so late subscribers see something
	// immediately.
	initial := queue.ProgressEvent{
		AnalysisID: id,
		Status:     record.Status,
		Error:      record.ErrorMessage,
	}
	if !s.writeProgressEvent(conn, initial) {
		return
	}
	if record.Status == domain.StatusCompleted || record.Status == domain.StatusError {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !s.writeProgressEvent(conn, event) {
				return
			}
			if event.Status == domain.StatusCompleted || event.Status == domain.StatusError {
				return
			}
		}
	}
}

func (s *Server) writeProgressEvent(conn *websocket.Conn, event queue.ProgressEvent) bool {
	conn.SetWriteDeadline(time.Now().Add(progressWriteTimeout))
	if err := conn.WriteJSON(event); err != nil {
		s.log.WithError(err).Debug("Websocket write failed")
		return false
	}
	return true
}
