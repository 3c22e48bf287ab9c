package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/services/requests"
)

// writeError maps service errors onto HTTP responses with a stable shape:
// {"error": {"code": ..., "message": ..., "fields": [...]}}.
func writeError(c *gin.Context, err error) {
	var ve *requests.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
			"code":    "VALIDATION_FAILED",
			"message": "one or more fields failed validation",
			"fields":  ve.Fields,
		}})
		return
	}

	code := common.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
		code = "INVALID_INPUT"
	case code == common.CodeInvalidTransition:
		status = http.StatusConflict
	case code == common.CodeUnreadableDocument:
		status = http.StatusUnprocessableEntity
	case code == common.CodeExtractionTimeout, code == common.CodeClassificationTimeout:
		status = http.StatusGatewayTimeout
	case code == common.CodeExtractionFailed, code == common.CodeMalformedClassification:
		status = http.StatusBadGateway
	}
	if code == "" {
		code = "INTERNAL"
	}

	c.JSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": err.Error(),
	}})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
		"code":    "INVALID_INPUT",
		"message": message,
	}})
}
