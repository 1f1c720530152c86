package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flacroncv-backend-go/internal/models"
)

// Collection names per document kind.
const (
	resumesCollection      = "resumes"
	coverLettersCollection = "coverLetters"
)

// firestoreDocumentRepository implements DocumentRepository for one collection.
type firestoreDocumentRepository struct {
	client     *firestore.Client
	kind       models.DocumentKind
	collection string
}

// NewFirestoreResumeRepository returns the repository backing the resumes collection.
func NewFirestoreResumeRepository(client *firestore.Client) DocumentRepository {
	return newFirestoreDocumentRepository(client, models.KindResume, resumesCollection)
}

// NewFirestoreCoverLetterRepository returns the repository backing the cover letters collection.
func NewFirestoreCoverLetterRepository(client *firestore.Client) DocumentRepository {
	return newFirestoreDocumentRepository(client, models.KindCoverLetter, coverLettersCollection)
}

func newFirestoreDocumentRepository(client *firestore.Client, kind models.DocumentKind, collection string) DocumentRepository {
	if client == nil {
		log.Fatalf("Firestore client is not initialized for %s repository.", kind)
	}
	return &firestoreDocumentRepository{client: client, kind: kind, collection: collection}
}

func (r *firestoreDocumentRepository) Kind() models.DocumentKind { return r.kind }

// Create adds a new document with an auto-generated ID. Timestamps are set
// here rather than by the server so the caller can return the stored record
// without a second read.
func (r *firestoreDocumentRepository) Create(ctx context.Context, doc *models.Document) (string, error) {
	docRef := r.client.Collection(r.collection).NewDoc()
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if _, err := docRef.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", r.kind, err)
	}
	doc.ID = docRef.ID
	doc.Kind = r.kind
	return docRef.ID, nil
}

// GetByID retrieves a document by its ID.
func (r *firestoreDocumentRepository) GetByID(ctx context.Context, docID string) (*models.Document, error) {
	if docID == "" {
		return nil, errors.New("document ID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(r.collection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s with ID '%s' not found: %w", r.kind, docID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s with ID '%s': %w", r.kind, docID, err)
	}
	return r.decode(docSnap)
}

// ListByUser retrieves every document owned by userID, newest first.
func (r *firestoreDocumentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListByUser operation")
	}
	query := r.client.Collection(r.collection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
	return r.collect(ctx, query.Documents(ctx))
}

// ListAll retrieves every document in the collection, newest first.
func (r *firestoreDocumentRepository) ListAll(ctx context.Context) ([]*models.Document, error) {
	docs, err := r.collect(ctx, r.client.Collection(r.collection).Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

func (r *firestoreDocumentRepository) collect(ctx context.Context, iter *firestore.DocumentIterator) ([]*models.Document, error) {
	defer iter.Stop()

	var docs []*models.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s documents: %w", r.kind, err)
		}
		doc, err := r.decode(snap)
		if err != nil {
			log.Printf("Error decoding %s (ID: %s): %v. Skipping.", r.kind, snap.Ref.ID, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateContent replaces the document payload and returns the stored record.
func (r *firestoreDocumentRepository) UpdateContent(ctx context.Context, docID string, content map[string]interface{}) (*models.Document, error) {
	if docID == "" {
		return nil, errors.New("document ID cannot be empty for Update operation")
	}
	ref := r.client.Collection(r.collection).Doc(docID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "content", Value: content},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s with ID '%s' not found for update: %w", r.kind, docID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update %s with ID '%s': %w", r.kind, docID, err)
	}
	return r.GetByID(ctx, docID)
}

// Delete removes a document. Firestore deletes are idempotent, so existence is
// checked first to report ErrNotFound for unknown IDs.
func (r *firestoreDocumentRepository) Delete(ctx context.Context, docID string) error {
	if docID == "" {
		return errors.New("document ID cannot be empty for Delete operation")
	}
	ref := r.client.Collection(r.collection).Doc(docID)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s with ID '%s' not found for deletion: %w", r.kind, docID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s with ID '%s': %w", r.kind, docID, err)
	}
	return nil
}

// Count returns the number of documents using a server-side count aggregation.
func (r *firestoreDocumentRepository) Count(ctx context.Context) (int, error) {
	aggQuery := r.client.Collection(r.collection).NewAggregationQuery().WithCount("all")
	results, err := aggQuery.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s documents: %w", r.kind, err)
	}
	count, ok := results["all"]
	if !ok {
		return 0, fmt.Errorf("aggregation count 'all' missing for %s", r.kind)
	}
	countValue, ok := count.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected aggregation result type %T for %s", count, r.kind)
	}
	return int(countValue.GetIntegerValue()), nil
}

func (r *firestoreDocumentRepository) decode(docSnap *firestore.DocumentSnapshot) (*models.Document, error) {
	var doc models.Document
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s data for ID '%s': %w", r.kind, docSnap.Ref.ID, err)
	}
	doc.ID = docSnap.Ref.ID
	doc.Kind = r.kind
	if doc.Content == nil {
		doc.Content = map[string]interface{}{}
	}
	return &doc, nil
}
