package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/middleware"
	"flacroncv-backend-go/internal/models"
)

// AdminHandler serves /admin. Every route sits behind the admin gate.
type AdminHandler struct {
	responder
	admin core.AdminService
}

func NewAdminHandler(as core.AdminService, logger *zap.Logger, production bool) *AdminHandler {
	return &AdminHandler{responder: newResponder(logger, production), admin: as}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get admin stats")
		return
	}
	ok(c, stats)
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get users list")
		return
	}
	ok(c, users)
}

// decodeStrict decodes a JSON body and rejects unknown fields.
func decodeStrict(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// UpdateUser handles PUT /admin/users/:id. Only the fields of
// models.UpdateUserFields are accepted; anything else is a 400.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		badRequest(c, "User ID is required")
		return
	}
	var fields models.UpdateUserFields
	if err := decodeStrict(c.Request.Body, &fields); err != nil {
		badRequest(c, fmt.Sprintf("Invalid user update: %v", err))
		return
	}
	if err := h.admin.UpdateUser(c.Request.Context(), c.GetString(middleware.ContextUserID), userID, fields); err != nil {
		h.respondError(c, err, "Failed to update user")
		return
	}
	message(c, http.StatusOK, "User updated successfully")
}

func (h *AdminHandler) Documents(c *gin.Context) {
	docs, err := h.admin.ListDocuments(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to get documents list")
		return
	}
	ok(c, docs)
}

// documentRequest reads {type, content} from the body; ?type= overrides an
// absent body type so DELETE works without a body.
func documentRequest(c *gin.Context) (models.AdminDocumentRequest, error) {
	var req models.AdminDocumentRequest
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, err
		}
	}
	if req.Type == "" {
		req.Type = c.Query("type")
	}
	return req, nil
}

func (h *AdminHandler) UpdateDocument(c *gin.Context) {
	req, err := documentRequest(c)
	if err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	doc, err := h.admin.UpdateDocument(c.Request.Context(), req.Type, c.Param("id"), req.Content)
	if err != nil {
		h.respondError(c, err, "Failed to update document")
		return
	}
	ok(c, doc)
}

func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	req, err := documentRequest(c)
	if err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	if err := h.admin.DeleteDocument(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Type, c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete document")
		return
	}
	message(c, http.StatusOK, "Document deleted successfully")
}

func (h *AdminHandler) RegisterWebhook(c *gin.Context) {
	var req models.WebhookRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Webhook type and URL are required")
		return
	}
	if err := h.admin.RegisterWebhook(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Type, req.URL); err != nil {
		h.respondError(c, err, "Failed to update webhook URL")
		return
	}
	message(c, http.StatusOK, fmt.Sprintf("Webhook %s updated successfully", req.Type))
}

// AuditLogs handles GET /admin/audit-logs?limit=.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	logs, err := h.admin.ListAuditLogs(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, "Failed to get audit logs")
		return
	}
	ok(c, logs)
}
