package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

// DocumentHandler serves one document kind (/resume or /cover-letter).
type DocumentHandler struct {
	responder
	docs  core.DocumentService
	label string // lower-case kind name for messages
}

func NewDocumentHandler(ds core.DocumentService, logger *zap.Logger, production bool) *DocumentHandler {
	return &DocumentHandler{
		responder: newResponder(logger, production),
		docs:      ds,
		label:     strings.ToLower(ds.Kind().Label()),
	}
}

func (h *DocumentHandler) bind(c *gin.Context) (models.DocumentRequest, bool) {
	var req models.DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return req, false
	}
	return req, true
}

// Generate handles POST /generate and POST / (create).
func (h *DocumentHandler) Generate(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	req, valid := h.bind(c)
	if !valid {
		return
	}
	res, err := h.docs.Generate(c.Request.Context(), uid, req.Lang, req.Payload(h.docs.Kind()))
	if err != nil {
		h.respondError(c, err, "Failed to generate "+h.label)
		return
	}
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: res.Document, Warning: res.Warning})
}

// Enhance handles POST /enhance.
func (h *DocumentHandler) Enhance(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	req, valid := h.bind(c)
	if !valid {
		return
	}
	merged, err := h.docs.Enhance(c.Request.Context(), uid, req.Lang, req.Payload(h.docs.Kind()))
	if err != nil {
		h.respondError(c, err, "Failed to enhance "+h.label+" with AI")
		return
	}
	ok(c, merged)
}

// EnhanceSummary handles POST /resume/enhance-summary.
func (h *DocumentHandler) EnhanceSummary(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	req, valid := h.bind(c)
	if !valid {
		return
	}
	merged, err := h.docs.EnhanceSummary(c.Request.Context(), uid, req.Lang, req.Payload(h.docs.Kind()))
	if err != nil {
		h.respondError(c, err, "Failed to enhance summary with AI")
		return
	}
	ok(c, merged)
}

// Feedback handles POST /ai-feedback. The response carries "feedback" at the
// top level rather than under "data".
func (h *DocumentHandler) Feedback(c *gin.Context) {
	if _, found := callerID(c); !found {
		return
	}
	req, valid := h.bind(c)
	if !valid {
		return
	}
	text, err := h.docs.Feedback(c.Request.Context(), req.Lang, req.Payload(h.docs.Kind()))
	if err != nil {
		h.respondError(c, err, "Failed to generate AI feedback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "feedback": text})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to retrieve "+h.label)
		return
	}
	ok(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	docs, err := h.docs.List(c.Request.Context(), uid)
	if err != nil {
		h.respondError(c, err, "Failed to retrieve "+h.label+"s")
		return
	}
	ok(c, docs)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	req, valid := h.bind(c)
	if !valid {
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), uid, c.Param("id"), req.Payload(h.docs.Kind()))
	if err != nil {
		h.respondError(c, err, "Failed to update "+h.label)
		return
	}
	ok(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete "+h.label)
		return
	}
	message(c, http.StatusOK, h.docs.Kind().Label()+" deleted successfully")
}
