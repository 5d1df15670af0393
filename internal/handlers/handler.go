package handler

import (
	"errors"
	"net/http"

	"hcbs-billing-backend/internal/errs"

	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindValidation:
		status = http.StatusUnprocessableEntity
	case errs.KindBusiness:
		status = http.StatusConflict
	case errs.KindIntegration:
		status = http.StatusBadGateway
	}

	body := gin.H{"error": e.Message, "code": e.Code}
	if len(e.Violations) > 0 {
		body["violations"] = e.Violations
	}
	c.JSON(status, body)
}

func requestUser(c *gin.Context) string {
	if user := c.GetHeader("X-User-ID"); user != "" {
		return user
	}
	return "system"
}
