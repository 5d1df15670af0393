package handler

import (
	"net/http"
	"strconv"

	"hcbs-billing-backend/internal/services/arreport"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ARHandler struct {
	service *arreport.Service
}

func NewARHandler(s *arreport.Service) *ARHandler {
	return &ARHandler{service: s}
}

func (h *ARHandler) Aging(c *gin.Context) {
	var f arreport.AgingFilter
	if raw := c.Query("payer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.PayerID = &id
		}
	}
	f.ProgramCode = c.Query("program")

	report, err := h.service.GetAgingReport(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ARHandler) OutstandingClaims(c *gin.Context) {
	olderThan := queryInt(c, "older_than_days", 30)
	var payerID *uuid.UUID
	if raw := c.Query("payer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			payerID = &id
		}
	}

	claims, err := h.service.GetOutstandingClaims(c.Request.Context(), olderThan, payerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

func (h *ARHandler) UnreconciledPayments(c *gin.Context) {
	olderThan := queryInt(c, "older_than_days", 30)

	payments, err := h.service.GetUnreconciledPayments(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *ARHandler) Collections(c *gin.Context) {
	var payerID *uuid.UUID
	if raw := c.Query("payer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			payerID = &id
		}
	}

	items, err := h.service.GetCollectionsWorkList(c.Request.Context(), payerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_list": items})
}

func (h *ARHandler) Metrics(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	metrics, err := h.service.GetMetrics(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
