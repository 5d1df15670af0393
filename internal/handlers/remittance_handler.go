package handler

import (
	"io"
	"net/http"

	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/services/remittance"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RemittanceHandler struct {
	service *remittance.Service
}

func NewRemittanceHandler(s *remittance.Service) *RemittanceHandler {
	return &RemittanceHandler{service: s}
}

// Import accepts a multipart remittance file upload plus payer and file-type
// form fields.
func (h *RemittanceHandler) Import(c *gin.Context) {
	payerID, err := uuid.Parse(c.PostForm("payer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payer ID"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read file"})
		return
	}

	result, err := h.service.ProcessRemittanceFile(c.Request.Context(), remittance.ImportRequest{
		PayerID:     payerID,
		FileContent: content,
		FileType:    models.RemittanceFileType(c.PostForm("file_type")),
		FileName:    fileHeader.Filename,
	}, requestUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
