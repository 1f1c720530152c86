package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

// GenerateResult is a generated document plus an optional non-fatal warning.
type GenerateResult struct {
	Document *models.Document
	Saved    bool
	Warning  string
}

type documentService struct {
	docs     db.DocumentRepository
	users    db.UserRepository
	enhancer ContentEnhancer
	logger   *zap.Logger
}

// NewDocumentService creates the service for the repository's document kind.
func NewDocumentService(docs db.DocumentRepository, users db.UserRepository, enhancer ContentEnhancer, logger *zap.Logger) DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enhancer == nil {
		enhancer = unavailableEnhancer{}
	}
	return &documentService{
		docs:     docs,
		users:    users,
		enhancer: enhancer,
		logger:   logger.With(zap.String("documentKind", string(docs.Kind()))),
	}
}

func (s *documentService) Kind() models.DocumentKind { return s.docs.Kind() }

func normalizeLang(lang string) string {
	if strings.EqualFold(strings.TrimSpace(lang), "fr") {
		return "fr"
	}
	return "en"
}

// mergeContent overlays the enhancer output on the original payload.
func mergeContent(original, enhanced map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(original)+len(enhanced))
	for k, v := range original {
		out[k] = v
	}
	for k, v := range enhanced {
		out[k] = v
	}
	return out
}

func (s *documentService) isPro(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, storeError("load user", err)
	}
	return HasActivePlan(user, models.PlanPro), nil
}

func (s *documentService) enhance(ctx context.Context, payload map[string]interface{}, lang string) (map[string]interface{}, error) {
	if s.Kind() == models.KindCoverLetter {
		return s.enhancer.EnhanceCoverLetter(ctx, payload, lang)
	}
	return s.enhancer.EnhanceResume(ctx, payload, lang)
}

func (s *documentService) Generate(ctx context.Context, userID, lang string, payload map[string]interface{}) (*GenerateResult, error) {
	content := payload
	pro, err := s.isPro(ctx, userID)
	if err != nil {
		s.logger.Warn("Plan lookup failed, generating without enhancement", zap.String("userID", userID), zap.Error(err))
	}
	if pro {
		enhanced, err := s.enhance(ctx, payload, normalizeLang(lang))
		if err != nil {
			s.logger.Warn("Enhancement failed, keeping original content", zap.String("userID", userID), zap.Error(err))
		} else {
			content = mergeContent(payload, enhanced)
		}
	}

	doc := &models.Document{Kind: s.Kind(), UserID: userID, Content: content}
	if _, err := s.docs.Create(ctx, doc); err != nil {
		s.logger.Error("Generated document could not be saved", zap.String("userID", userID), zap.Error(err))
		return &GenerateResult{
			Document: doc,
			Warning:  fmt.Sprintf("%s was generated but could not be saved", s.Kind().Label()),
		}, nil
	}
	return &GenerateResult{Document: doc, Saved: true}, nil
}

func (s *documentService) requirePro(ctx context.Context, userID string) error {
	pro, err := s.isPro(ctx, userID)
	if err != nil {
		return err
	}
	if !pro {
		return ErrProRequired
	}
	return nil
}

func (s *documentService) Enhance(ctx context.Context, userID, lang string, payload map[string]interface{}) (map[string]interface{}, error) {
	if err := s.requirePro(ctx, userID); err != nil {
		return nil, err
	}
	enhanced, err := s.enhance(ctx, payload, normalizeLang(lang))
	if err != nil {
		return nil, ErrEnhancement.withCause(err)
	}
	return mergeContent(payload, enhanced), nil
}

func (s *documentService) EnhanceSummary(ctx context.Context, userID, lang string, payload map[string]interface{}) (map[string]interface{}, error) {
	if s.Kind() != models.KindResume {
		return nil, validationError("Summary enhancement is only available for resumes")
	}
	if err := s.requirePro(ctx, userID); err != nil {
		return nil, err
	}
	enhanced, err := s.enhancer.EnhanceResumeSummary(ctx, payload, normalizeLang(lang))
	if err != nil {
		return nil, ErrEnhancement.withCause(err)
	}
	return mergeContent(payload, enhanced), nil
}

func (s *documentService) Feedback(ctx context.Context, lang string, payload map[string]interface{}) (string, error) {
	if len(payload) == 0 {
		return "", validationError("%s data is required", s.Kind().Label())
	}
	feedback, err := s.enhancer.Feedback(ctx, s.Kind(), payload, normalizeLang(lang))
	if err != nil {
		return "", newError(ErrExternalService, "Failed to generate AI feedback").withCause(err)
	}
	return feedback, nil
}

func (s *documentService) load(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, storeError("load document", err)
	}
	return doc, nil
}

// loadOwned returns the document only when userID owns it.
func (s *documentService) loadOwned(ctx context.Context, userID, docID string) (*models.Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		s.logger.Warn("Document access denied", zap.String("userID", userID), zap.String("docID", docID))
		return nil, ErrNotDocumentOwner
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, userID, docID string) (*models.Document, error) {
	return s.loadOwned(ctx, userID, docID)
}

func (s *documentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list documents", err)
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	return docs, nil
}

func (s *documentService) Update(ctx context.Context, userID, docID string, payload map[string]interface{}) (*models.Document, error) {
	if _, err := s.loadOwned(ctx, userID, docID); err != nil {
		return nil, err
	}
	return s.AdminUpdate(ctx, docID, payload)
}

func (s *documentService) Delete(ctx context.Context, userID, docID string) error {
	if _, err := s.loadOwned(ctx, userID, docID); err != nil {
		return err
	}
	return s.AdminDelete(ctx, docID)
}

func (s *documentService) AdminUpdate(ctx context.Context, docID string, payload map[string]interface{}) (*models.Document, error) {
	if payload == nil {
		return nil, validationError("%s content is required", s.Kind().Label())
	}
	doc, err := s.docs.UpdateContent(ctx, docID, payload)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, storeError("update document", err)
	}
	return doc, nil
}

func (s *documentService) AdminDelete(ctx context.Context, docID string) error {
	if err := s.docs.Delete(ctx, docID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return storeError("delete document", err)
	}
	s.logger.Info("Document deleted", zap.String("docID", docID))
	return nil
}

var errNoEnhancer = errors.New("no language model configured")

// unavailableEnhancer is used when no language model is configured.
type unavailableEnhancer struct{}

func (unavailableEnhancer) EnhanceResume(context.Context, map[string]interface{}, string) (map[string]interface{}, error) {
	return nil, errNoEnhancer
}

func (unavailableEnhancer) EnhanceResumeSummary(context.Context, map[string]interface{}, string) (map[string]interface{}, error) {
	return nil, errNoEnhancer
}

func (unavailableEnhancer) EnhanceCoverLetter(context.Context, map[string]interface{}, string) (map[string]interface{}, error) {
	return nil, errNoEnhancer
}

func (unavailableEnhancer) Feedback(context.Context, models.DocumentKind, map[string]interface{}, string) (string, error) {
	return "", errNoEnhancer
}
