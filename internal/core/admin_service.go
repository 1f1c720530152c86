package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

const (
	recentUsersLimit  = 5
	unknownOwnerEmail = "Unknown"
	maxOwnerLookups   = 8
)

// AdminUserView is the user projection shown on the admin dashboard.
type AdminUserView struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	DisplayName  string              `json:"displayName"`
	Subscription models.Subscription `json:"subscription"`
	Role         string              `json:"role"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// AdminStats summarizes the platform.
type AdminStats struct {
	TotalUsers        int             `json:"totalUsers"`
	TotalResumes      int             `json:"totalResumes"`
	TotalCoverLetters int             `json:"totalCoverLetters"`
	RecentUsers       []AdminUserView `json:"recentUsers"`
}

func newAdminUserView(u *models.User) AdminUserView {
	return AdminUserView{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.Name(),
		Subscription: u.Subscription,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

type adminService struct {
	users        db.UserRepository
	resumes      DocumentService
	coverLetters DocumentService
	resumeRepo   db.DocumentRepository
	letterRepo   db.DocumentRepository
	audit        AuditService
	logger       *zap.Logger
}

// NewAdminService wires the admin dashboard operations.
func NewAdminService(users db.UserRepository, resumeRepo, letterRepo db.DocumentRepository, resumes, coverLetters DocumentService, audit AuditService, logger *zap.Logger) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{
		users:        users,
		resumes:      resumes,
		coverLetters: coverLetters,
		resumeRepo:   resumeRepo,
		letterRepo:   letterRepo,
		audit:        audit,
		logger:       logger,
	}
}

func (s *adminService) Stats(ctx context.Context) (*AdminStats, error) {
	var (
		users          []*models.User
		resumeCount    int
		coverLetterCnt int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		resumeCount, err = s.resumeRepo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		coverLetterCnt, err = s.letterRepo.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("collect stats", err)
	}

	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	recent := make([]AdminUserView, 0, recentUsersLimit)
	for i := 0; i < len(users) && i < recentUsersLimit; i++ {
		recent = append(recent, newAdminUserView(users[i]))
	}
	return &AdminStats{
		TotalUsers:        len(users),
		TotalResumes:      resumeCount,
		TotalCoverLetters: coverLetterCnt,
		RecentUsers:       recent,
	}, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]AdminUserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	out := make([]AdminUserView, 0, len(users))
	for _, u := range users {
		out = append(out, newAdminUserView(u))
	}
	return out, nil
}

func (s *adminService) UpdateUser(ctx context.Context, actorID, userID string, fields models.UpdateUserFields) error {
	if fields.IsEmpty() {
		return validationError("No updatable fields supplied")
	}
	if fields.Role != nil && *fields.Role != models.RoleUser && *fields.Role != models.RoleAdmin {
		return validationError("Role must be one of: user, admin")
	}
	if fields.Email != nil && !strings.Contains(*fields.Email, "@") {
		return validationError("Email is invalid")
	}
	if err := s.users.UpdateProfile(ctx, userID, fields); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return storeError("update user", err)
	}

	details := map[string]interface{}{}
	if fields.Role != nil {
		details["role"] = *fields.Role
	}
	if fields.Email != nil {
		details["email"] = *fields.Email
	}
	if fields.DisplayName != nil {
		details["displayName"] = *fields.DisplayName
	}
	if fields.Username != nil {
		details["username"] = *fields.Username
	}
	s.record(ctx, models.AuditLog{
		UserID:     actorID,
		Action:     models.AuditUserUpdatedByAdmin,
		TargetType: "USER",
		TargetID:   userID,
		Source:     "admin",
		Details:    details,
	})
	return nil
}

func (s *adminService) ListDocuments(ctx context.Context) ([]models.AdminDocument, error) {
	var resumes, letters []*models.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resumes, err = s.resumeRepo.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		letters, err = s.letterRepo.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("list documents", err)
	}

	all := append(append([]*models.Document{}, resumes...), letters...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	emails := s.ownerEmails(ctx, all)
	out := make([]models.AdminDocument, 0, len(all))
	for _, d := range all {
		out = append(out, models.AdminDocument{Document: d, UserEmail: emails[d.UserID]})
	}
	return out, nil
}

// ownerEmails resolves each distinct owner concurrently. Failed lookups map to "Unknown".
func (s *adminService) ownerEmails(ctx context.Context, docs []*models.Document) map[string]string {
	emails := make(map[string]string)
	var owners []string
	for _, d := range docs {
		if _, seen := emails[d.UserID]; seen {
			continue
		}
		emails[d.UserID] = unknownOwnerEmail
		if d.UserID != "" {
			owners = append(owners, d.UserID)
		}
	}

	// Workers write emails under mu; the loop only reads the owners slice.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxOwnerLookups)
	for _, userID := range owners {
		g.Go(func() error {
			u, err := s.users.GetByID(gctx, userID)
			if err != nil || u.Email == "" {
				return nil
			}
			mu.Lock()
			emails[userID] = u.Email
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return emails
}

func (s *adminService) serviceFor(docType string) (DocumentService, error) {
	kind, err := models.ParseDocumentKind(docType)
	if err != nil {
		return nil, validationError("Document type must be one of: resume, coverLetter")
	}
	if kind == models.KindCoverLetter {
		return s.coverLetters, nil
	}
	return s.resumes, nil
}

func (s *adminService) UpdateDocument(ctx context.Context, docType, docID string, content map[string]interface{}) (*models.Document, error) {
	svc, err := s.serviceFor(docType)
	if err != nil {
		return nil, err
	}
	return svc.AdminUpdate(ctx, docID, content)
}

func (s *adminService) DeleteDocument(ctx context.Context, actorID, docType, docID string) error {
	svc, err := s.serviceFor(docType)
	if err != nil {
		return err
	}
	if err := svc.AdminDelete(ctx, docID); err != nil {
		return err
	}
	s.record(ctx, models.AuditLog{
		UserID:     actorID,
		Action:     models.AuditDocumentDeleted,
		TargetType: "DOCUMENT",
		TargetID:   docID,
		Source:     "admin",
		Details:    map[string]interface{}{"type": docType},
	})
	return nil
}

func (s *adminService) RegisterWebhook(ctx context.Context, actorID, hookType, url string) error {
	hookType = strings.TrimSpace(hookType)
	if hookType == "" {
		return validationError("Webhook type is required")
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return validationError("Webhook URL must be http or https")
	}
	if s.audit == nil {
		return nil
	}
	err := s.audit.CreateAuditLog(ctx, models.AuditLog{
		UserID:     actorID,
		Action:     models.AuditWebhookRegistered,
		TargetType: "WEBHOOK",
		TargetID:   hookType,
		Source:     "admin",
		Details:    map[string]interface{}{"type": hookType, "url": url},
	})
	if err != nil {
		return storeError("record webhook", err)
	}
	s.logger.Info("Automation webhook registered", zap.String("type", hookType), zap.String("actorID", actorID))
	return nil
}

func (s *adminService) ListAuditLogs(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	if s.audit == nil {
		return []*models.AuditLog{}, nil
	}
	return s.audit.ListRecent(ctx, limit)
}

func (s *adminService) record(ctx context.Context, entry models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
