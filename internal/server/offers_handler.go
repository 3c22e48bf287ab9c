package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/procurehub/backend/constants"
)

// uploadPDF accepts a multipart offer PDF, stores it, and runs the
// extraction pipeline. The response carries the prefill payload plus the
// stored path so a follow-up create can link the offer.
func (s *Server) uploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field 'file' is required")
		return
	}

	ext := constants.NormalizeExt(filepath.Ext(file.Filename))
	if !constants.IsAllowedExt(ext) {
		badRequest(c, fmt.Sprintf("unsupported file type %q, only PDF is accepted", ext))
		return
	}
	maxBytes := s.cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytesDefault
	}
	if file.Size > maxBytes {
		badRequest(c, fmt.Sprintf("file exceeds the %d byte upload limit", maxBytes))
		return
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(c, err)
		return
	}
	stored := filepath.Join(s.cfg.UploadDir, uuid.New().String()+".pdf")
	if err := c.SaveUploadedFile(file, stored); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.deps.Offers.ExtractFromPDF(c.Request.Context(), stored)
	if err != nil {
		// the stored file is useless without an extraction result
		_ = os.Remove(stored)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extraction":     result,
		"offer_path":     stored,
		"offer_filename": file.Filename,
	})
}
