package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
	"github.com/couchcryptid/wildfire-intel-service/internal/export"
	"github.com/couchcryptid/wildfire-intel-service/internal/render"
)

// fetchRequest is the body of POST /api/v1/detections/fetch. Either a
// day count or an inclusive end date selects the range.
type fetchRequest struct {
	Source    string             `json:"source"`
	BBox      domain.BoundingBox `json:"bbox"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date,omitempty"`
	Days      int                `json:"days,omitempty"`
}

func (r fetchRequest) toQuery() (domain.Query, error) {
	start, err := time.ParseInLocation("2006-01-02", r.StartDate, time.UTC)
	if err != nil {
		return domain.Query{}, fmt.Errorf("start_date must be YYYY-MM-DD: %w", domain.ErrValidation)
	}

	days := r.Days
	if r.EndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", r.EndDate, time.UTC)
		if err != nil {
			return domain.Query{}, fmt.Errorf("end_date must be YYYY-MM-DD: %w", domain.ErrValidation)
		}
		if end.Before(start) {
			return domain.Query{}, fmt.Errorf("start date is after end date: %w", domain.ErrValidation)
		}
		days = int(end.Sub(start).Hours()/24) + 1
	}

	return domain.Query{
		Source:    domain.SourceProduct(r.Source),
		BBox:      r.BBox,
		StartDate: start,
		Days:      days,
	}, nil
}

func (s *Server) handleFetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	query, err := req.toQuery()
	if err != nil {
		abortWithError(c, err)
		return
	}

	snapshot, err := s.pipeline.FetchAndStore(c.Request.Context(), query)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":      len(snapshot.Detections),
		"fetched_at": snapshot.FetchedAt,
		"days":       snapshot.Query.Days,
		"stats":      s.store.Stats(),
	})
}

func (s *Server) handleDetections(c *gin.Context) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"detections": []domain.Detection{}, "count": 0})
		return
	}

	detections := snapshot.Detections
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit >= 0 && limit < len(detections) {
			detections = detections[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"detections": detections,
		"count":      s.store.Len(),
		"fetched_at": snapshot.FetchedAt,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Stats())
}

func (s *Server) handleMap(c *gin.Context) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no detections fetched yet"})
		return
	}

	page, err := render.Render(snapshot.Detections, snapshot.Query.BBox, s.markerCap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleAssess gates on three independent conditions, each with its own
// message: inference credential, a fetched detection set, and a known
// detection ID.
func (s *Server) handleAssess(c *gin.Context) {
	if !s.assessor.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "risk assessment unavailable: no inference credential configured"})
		return
	}
	if s.store.Len() == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "no detections fetched yet"})
		return
	}

	id := c.Param("id")
	detection, ok := s.store.Detection(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("detection %q not in current set", id)})
		return
	}

	mode := s.mode
	if raw := c.Query("mode"); raw != "" {
		parsed, ok := domain.ParseResponseMode(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"structured\" or \"narrative\""})
			return
		}
		mode = parsed
	}

	assessment, err := s.assessor.Assess(c.Request.Context(), detection, mode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleExport(c *gin.Context) {
	snapshot, ok := s.store.Snapshot()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no detections fetched yet"})
		return
	}

	filename := export.Filename(snapshot.Query)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	if err := export.WriteCSV(c.Writer, snapshot.Detections); err != nil {
		s.logger.Error("csv export failed", "error", err)
	}
}

// abortWithError maps the error taxonomy to HTTP statuses. Every
// failure is a user-visible message; nothing here crashes the session.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrTransport):
		// 504 is reserved for the upstream timing out; connection
		// refusals and other transport failures are a plain 502.
		if isTimeout(err) {
			status = http.StatusGatewayTimeout
		}
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrParse), errors.Is(err, domain.ErrInference):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
