package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flacroncv-backend-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is returned by every repository when the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrAlreadyExists is returned when creating a document whose ID is taken.
var ErrAlreadyExists = errors.New("document already exists")

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document. A Firebase UID in user.ID becomes the
// document ID; otherwise Firestore assigns one.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	col := r.client.Collection(usersCollection)
	var ref *firestore.DocumentRef
	if user.ID != "" {
		ref = col.Doc(user.ID)
	} else {
		ref = col.NewDoc()
	}
	if _, err := ref.Create(ctx, user); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", ref.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", ref.ID, err)
	}
	user.ID = ref.ID
	return nil
}

// GetByID retrieves a user document by its ID.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// GetByEmail returns the first user with the given email.
func (r *firestoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// GetByBillingCustomerRef returns the user linked to a billing customer.
func (r *firestoreUserRepository) GetByBillingCustomerRef(ctx context.Context, customerRef string) (*models.User, error) {
	return r.findOne(ctx, "billingCustomerRef", customerRef)
}

func (r *firestoreUserRepository) findOne(ctx context.Context, field, value string) (*models.User, error) {
	if value == "" {
		return nil, fmt.Errorf("%s cannot be empty for lookup", field)
	}
	iter := r.client.Collection(usersCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("user with %s '%s' not found: %w", field, value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users by %s: %w", field, err)
	}
	return decodeUser(doc)
}

// List returns every user. The collection is small enough for the admin views
// that use it; there is no pagination.
func (r *firestoreUserRepository) List(ctx context.Context) ([]*models.User, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}
		user, err := decodeUser(doc)
		if err != nil {
			log.Printf("Skipping undecodable user document %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateProfile writes only the supplied fields. Update (not Set) is used so a
// missing document surfaces as ErrNotFound instead of being created.
func (r *firestoreUserRepository) UpdateProfile(ctx context.Context, userID string, fields models.UpdateUserFields) error {
	var updates []firestore.Update
	if fields.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *fields.DisplayName})
	}
	if fields.Username != nil {
		updates = append(updates, firestore.Update{Path: "username", Value: *fields.Username})
	}
	if fields.Email != nil {
		updates = append(updates, firestore.Update{Path: "email", Value: *fields.Email})
	}
	if fields.Role != nil {
		updates = append(updates, firestore.Update{Path: "role", Value: *fields.Role})
	}
	if len(updates) == 0 {
		return nil
	}
	return r.update(ctx, userID, updates)
}

// SetSubscription replaces the whole subscription map in a single document
// write, so concurrent deliveries of the same event converge.
func (r *firestoreUserRepository) SetSubscription(ctx context.Context, userID string, sub models.Subscription) error {
	return r.update(ctx, userID, []firestore.Update{{Path: "subscription", Value: sub}})
}

// SetBillingCustomerRef stores the billing customer reference; nil clears it.
func (r *firestoreUserRepository) SetBillingCustomerRef(ctx context.Context, userID string, customerRef *string) error {
	var value interface{}
	if customerRef != nil {
		value = *customerRef
	}
	return r.update(ctx, userID, []firestore.Update{{Path: "billingCustomerRef", Value: value}})
}

func (r *firestoreUserRepository) update(ctx context.Context, userID string, updates []firestore.Update) error {
	if userID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	if _, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found for update: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	user.ID = docSnap.Ref.ID
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Subscription.Status == "" {
		user.Subscription = models.DefaultSubscription()
	}
	return &user, nil
}
