package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/pdf"
)

// PDFConverter renders an uploaded image as a paginated PDF.
type PDFConverter interface {
	Convert(ctx context.Context, src io.Reader, w io.Writer) (int, error)
}

// PDFHandler serves POST /convert-to-cmyk-pdf.
type PDFHandler struct {
	responder
	converter PDFConverter
	maxBytes  int64
}

func NewPDFHandler(conv PDFConverter, maxBytes int64, logger *zap.Logger, production bool) *PDFHandler {
	return &PDFHandler{responder: newResponder(logger, production), converter: conv, maxBytes: maxBytes}
}

// Convert reads the multipart "image" field and streams back a PDF attachment.
func (h *PDFHandler) Convert(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message(c, http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit.")
			return
		}
		badRequest(c, "No image file uploaded.")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, err, "Error generating CMYK-style PDF")
		return
	}
	defer file.Close()

	var out bytes.Buffer
	pages, err := h.converter.Convert(c.Request.Context(), file, &out)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidImage) || errors.Is(err, pdf.ErrEmptyImage) {
			badRequest(c, "Uploaded file is not a supported image.")
			return
		}
		h.respondError(c, err, "Error generating CMYK-style PDF")
		return
	}

	h.logger.Debug("PDF conversion complete", zap.String("filename", header.Filename), zap.Int("pages", pages))
	c.Header("Content-Disposition", `attachment; filename="output-cmyk.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out.Bytes())
}
