package core

import (
	"context"
	"fmt"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

const defaultAuditLimit = 50

// auditService implements the AuditService interface.
type auditService struct {
	auditRepo db.AuditRepository
}

// NewAuditService creates a new AuditService backed by auditRepo.
func NewAuditService(auditRepo db.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// CreateAuditLog stores an audit entry. Entries without an action are rejected.
func (s *auditService) CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error {
	if logEntry.Action == "" {
		return validationError("Audit action is required")
	}
	if err := s.auditRepo.Create(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log via repository: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first, capped at limit.
func (s *auditService) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	logs, err := s.auditRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, storeError("list audit logs", err)
	}
	return logs, nil
}
