package handler

import (
	"net/http"
	"strconv"
	"time"

	"hcbs-billing-backend/internal/repository"
	"hcbs-billing-backend/internal/services/adjustments"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdjustmentHandler struct {
	ledger *adjustments.Ledger
}

func NewAdjustmentHandler(ledger *adjustments.Ledger) *AdjustmentHandler {
	return &AdjustmentHandler{ledger: ledger}
}

func (h *AdjustmentHandler) AddAdjustment(c *gin.Context) {
	claimPaymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim payment ID"})
		return
	}

	var req adjustments.AddAdjustmentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.ClaimPaymentID = &claimPaymentID

	adj, err := h.ledger.AddAdjustment(c.Request.Context(), req, requestUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"adjustment": adj})
}

func (h *AdjustmentHandler) ForPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	records, err := h.ledger.GetAdjustmentsForPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustments": records})
}

func (h *AdjustmentHandler) ForClaim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim ID"})
		return
	}

	records, err := h.ledger.GetAdjustmentsForClaim(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustments": records})
}

func (h *AdjustmentHandler) Trends(c *gin.Context) {
	trends, err := h.ledger.GetAdjustmentTrends(c.Request.Context(), adjustmentFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

func (h *AdjustmentHandler) TopReasons(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.ledger.GetTopAdjustmentReasons(c.Request.Context(), adjustmentFilter(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reasons": rows})
}

func (h *AdjustmentHandler) Impact(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	impact, err := h.ledger.GetAdjustmentImpact(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, impact)
}

func (h *AdjustmentHandler) Denials(c *gin.Context) {
	analysis, err := h.ledger.GetDenialAnalysis(c.Request.Context(), adjustmentFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func adjustmentFilter(c *gin.Context) repository.AdjustmentFilter {
	var f repository.AdjustmentFilter
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.From = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.To = &t
		}
	}
	if raw := c.Query("payer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			f.PayerID = &id
		}
	}
	return f
}

func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing from date"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing to date"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
