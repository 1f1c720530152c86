// Package testutil provides in-memory fakes shared by the service and HTTP tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

// MemoryUserRepo is an in-memory db.UserRepository. Stored users are copied on
// the way in and out so tests cannot mutate state behind the repository.
type MemoryUserRepo struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID int

	// Error injection. A nil value means the operation behaves normally.
	GetErr             error
	SetSubscriptionErr error
	SetCustomerRefErr  error

	// SubscriptionWrites counts successful SetSubscription calls.
	SubscriptionWrites int
}

var _ db.UserRepository = (*MemoryUserRepo)(nil)

// NewMemoryUserRepo seeds the repository with the given users.
func NewMemoryUserRepo(users ...*models.User) *MemoryUserRepo {
	r := &MemoryUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

// Put stores a copy of u, filling in defaults like the Firestore decoder does.
func (r *MemoryUserRepo) Put(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := CloneUser(u)
	if c.Role == "" {
		c.Role = models.RoleUser
	}
	if c.Subscription.Status == "" {
		c.Subscription = models.DefaultSubscription()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.users[c.ID] = c
}

// User returns a copy of the stored user, or nil.
func (r *MemoryUserRepo) User(id string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return CloneUser(u)
	}
	return nil
}

func (r *MemoryUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	if user.ID == "" {
		r.nextID++
		user.ID = fmt.Sprintf("user-%d", r.nextID)
	}
	if _, exists := r.users[user.ID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("user with ID '%s': %w", user.ID, db.ErrAlreadyExists)
	}
	r.mu.Unlock()
	r.Put(user)
	return nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	return CloneUser(u), nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

// GetByBillingCustomerRef rejects an empty reference with a plain error, as
// the Firestore repository does.
func (r *MemoryUserRepo) GetByBillingCustomerRef(_ context.Context, customerRef string) (*models.User, error) {
	if customerRef == "" {
		return nil, errors.New("billingCustomerRef cannot be empty for lookup")
	}
	return r.find(func(u *models.User) bool {
		return u.BillingCustomerRef != nil && *u.BillingCustomerRef == customerRef
	})
}

func (r *MemoryUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	for _, id := range r.sortedIDs() {
		if match(r.users[id]) {
			return CloneUser(r.users[id]), nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *MemoryUserRepo) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, id := range r.sortedIDs() {
		out = append(out, CloneUser(r.users[id]))
	}
	return out, nil
}

func (r *MemoryUserRepo) UpdateProfile(_ context.Context, userID string, fields models.UpdateUserFields) error {
	return r.mutate(userID, nil, func(u *models.User) {
		if fields.DisplayName != nil {
			u.DisplayName = *fields.DisplayName
		}
		if fields.Username != nil {
			u.Username = *fields.Username
		}
		if fields.Email != nil {
			u.Email = *fields.Email
		}
		if fields.Role != nil {
			u.Role = *fields.Role
		}
	})
}

func (r *MemoryUserRepo) SetSubscription(_ context.Context, userID string, sub models.Subscription) error {
	err := r.mutate(userID, r.SetSubscriptionErr, func(u *models.User) {
		u.Subscription = cloneSubscription(sub)
	})
	if err == nil {
		r.mu.Lock()
		r.SubscriptionWrites++
		r.mu.Unlock()
	}
	return err
}

func (r *MemoryUserRepo) SetBillingCustomerRef(_ context.Context, userID string, customerRef *string) error {
	return r.mutate(userID, r.SetCustomerRefErr, func(u *models.User) {
		u.BillingCustomerRef = cloneString(customerRef)
	})
}

func (r *MemoryUserRepo) mutate(userID string, injected error, apply func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if injected != nil {
		return injected
	}
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with ID '%s' not found for update: %w", userID, db.ErrNotFound)
	}
	apply(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryUserRepo) sortedIDs() []string {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloneUser deep-copies a user including its pointer fields.
func CloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	c.BillingCustomerRef = cloneString(u.BillingCustomerRef)
	c.Subscription = cloneSubscription(u.Subscription)
	return &c
}

func cloneSubscription(s models.Subscription) models.Subscription {
	c := s
	c.ReferenceID = cloneString(s.ReferenceID)
	if s.EndsAt != nil {
		t := *s.EndsAt
		c.EndsAt = &t
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MemoryDocumentRepo is an in-memory db.DocumentRepository for one kind.
type MemoryDocumentRepo struct {
	mu     sync.Mutex
	kind   models.DocumentKind
	docs   map[string]*models.Document
	nextID int

	CreateErr error
	ListErr   error
}

var _ db.DocumentRepository = (*MemoryDocumentRepo)(nil)

// NewMemoryDocumentRepo returns an empty repository for kind.
func NewMemoryDocumentRepo(kind models.DocumentKind) *MemoryDocumentRepo {
	return &MemoryDocumentRepo{kind: kind, docs: make(map[string]*models.Document)}
}

func (r *MemoryDocumentRepo) Kind() models.DocumentKind { return r.kind }

func (r *MemoryDocumentRepo) Create(_ context.Context, doc *models.Document) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return "", r.CreateErr
	}
	r.nextID++
	doc.ID = fmt.Sprintf("%s-%d", r.kind, r.nextID)
	doc.Kind = r.kind
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		// Strictly increasing timestamps keep newest-first ordering deterministic.
		doc.CreatedAt = now.Add(time.Duration(r.nextID) * time.Millisecond)
	}
	doc.UpdatedAt = doc.CreatedAt
	r.docs[doc.ID] = cloneDocument(doc)
	return doc.ID, nil
}

func (r *MemoryDocumentRepo) GetByID(_ context.Context, docID string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%s with ID '%s' not found: %w", r.kind, docID, db.ErrNotFound)
	}
	return cloneDocument(d), nil
}

func (r *MemoryDocumentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Document
	for _, d := range all {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryDocumentRepo) ListAll(_ context.Context) ([]*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*models.Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, cloneDocument(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryDocumentRepo) UpdateContent(_ context.Context, docID string, content map[string]interface{}) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%s with ID '%s' not found for update: %w", r.kind, docID, db.ErrNotFound)
	}
	d.Content = cloneContent(content)
	d.UpdatedAt = time.Now().UTC()
	return cloneDocument(d), nil
}

func (r *MemoryDocumentRepo) Delete(_ context.Context, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[docID]; !ok {
		return fmt.Errorf("%s with ID '%s' not found for deletion: %w", r.kind, docID, db.ErrNotFound)
	}
	delete(r.docs, docID)
	return nil
}

func (r *MemoryDocumentRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs), nil
}

func cloneDocument(d *models.Document) *models.Document {
	c := *d
	c.Content = cloneContent(d.Content)
	return &c
}

func cloneContent(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MemoryAuditRepo is an in-memory db.AuditRepository.
type MemoryAuditRepo struct {
	mu        sync.Mutex
	entries   []models.AuditLog
	CreateErr error
}

var _ db.AuditRepository = (*MemoryAuditRepo)(nil)

func (r *MemoryAuditRepo) Create(_ context.Context, logEntry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	logEntry.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	if logEntry.Timestamp.IsZero() {
		logEntry.Timestamp = time.Now().UTC()
	}
	r.entries = append(r.entries, logEntry)
	return nil
}

func (r *MemoryAuditRepo) ListRecent(_ context.Context, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := r.entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Actions returns the recorded actions in insertion order.
func (r *MemoryAuditRepo) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}
