package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "payment-reconciliation-service/pkg/errors"
)

// handleHealth reports service liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRunReconciliation triggers one reconciliation run. The optional
// X-Actor header identifies the caller for the audit trail.
func (s *Server) handleRunReconciliation(c *gin.Context) {
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "anonymous"
	}

	run, err := s.service.Run(c.Request.Context(), actor)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Reconciliation completed",
		"run_id":          run.ID,
		"summary":         run.Summary,
		"matched_count":   run.Summary.Matched,
		"partial_count":   run.Summary.Partial,
		"unmatched_count": run.Summary.Unmatched,
		"requires_review": run.Summary.Partial + run.Summary.Review,
		"total":           len(run.Details),
	})
}

// handleSummary returns the latest run's summary.
func (s *Server) handleSummary(c *gin.Context) {
	summary, runDate, err := s.reporter.LatestSummary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runDate": runDate, "summary": summary})
}

// handleMismatches returns the latest run's details needing attention.
// ?showAll=true returns the unfiltered detail list.
func (s *Server) handleMismatches(c *gin.Context) {
	showAll := strings.EqualFold(c.Query("showAll"), "true")

	items, err := s.reporter.Mismatches(c.Request.Context(), showAll)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// handleHistory returns a paginated, newest-first list of run summaries.
func (s *Server) handleHistory(c *gin.Context) {
	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)

	page, err := s.reporter.History(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleDownload streams the latest run as a CSV attachment.
func (s *Server) handleDownload(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.reporter.WriteCSV(c.Request.Context(), &buf); err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciliation_report.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// handleDeleteRun deletes a single run by ID.
func (s *Server) handleDeleteRun(c *gin.Context) {
	id := c.Param("id")

	deleted, err := s.store.DeleteRun(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"message": "Reconciliation result not found"})
		return
	}

	s.auditBestEffort(c, "reconcile.deleteOne", map[string]interface{}{"id": id})
	c.JSON(http.StatusOK, gin.H{"message": "Deleted reconciliation result", "id": id})
}

// handleDeleteAllRuns deletes every persisted run.
func (s *Server) handleDeleteAllRuns(c *gin.Context) {
	count, err := s.store.DeleteAllRuns(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.auditBestEffort(c, "reconcile.deleteAll", map[string]interface{}{"deleted": count})
	c.JSON(http.StatusOK, gin.H{"message": "All reconciliation results deleted", "deleted": count})
}

// handleListTransactions returns the current transaction set.
func (s *Server) handleListTransactions(c *gin.Context) {
	transactions, err := s.store.ListTransactions(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(transactions), "items": transactions})
}

// handleListStatements returns the current statement set.
func (s *Server) handleListStatements(c *gin.Context) {
	statements, err := s.store.ListStatements(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(statements), "items": statements})
}

// writeError maps application errors to HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	if appErr, ok := apperrors.AsReconcilerError(err); ok {
		switch appErr.Code {
		case apperrors.CodeNoTransactions, apperrors.CodeNoStatements:
			status = http.StatusBadRequest
		case apperrors.CodeNoRuns, apperrors.CodeNotFound:
			status = http.StatusNotFound
		default:
			if appErr.Category == apperrors.CategoryValidation {
				status = http.StatusBadRequest
			}
		}
		if status >= http.StatusInternalServerError {
			s.log.WithError(err).Error("Request failed")
		}
		c.JSON(status, gin.H{"message": appErr.Message, "code": appErr.Code})
		return
	}

	s.log.WithError(err).Error("Request failed")
	c.JSON(status, gin.H{"message": "internal server error"})
}

// auditBestEffort records an audit event, logging and swallowing failures.
func (s *Server) auditBestEffort(c *gin.Context, action string, details map[string]interface{}) {
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "anonymous"
	}
	if err := s.store.RecordEvent(c.Request.Context(), action, actor, details); err != nil {
		s.log.WithError(err).Warn("Audit sink failure ignored")
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
