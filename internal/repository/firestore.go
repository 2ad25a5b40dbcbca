package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/entity"
)

// FirestoreStore implements ReceiptRepository on Cloud Firestore. The
// created_at field carries a serverTimestamp tag, so the store's trusted
// clock overrides the normalizer's local fallback when the record is first
// created; replaces go through setData and keep the stored time.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
}

func NewFirestoreStore(ctx context.Context, projectID, collection string, logger *zap.Logger) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	logger.Info("firestore store ready",
		zap.String("project_id", projectID),
		zap.String("collection", collection),
	)
	return &FirestoreStore{client: client, collection: collection, logger: logger}, nil
}

func (s *FirestoreStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *FirestoreStore) Add(ctx context.Context, rec *entity.ReceiptRecord) error {
	if rec.ReceiptID == "" {
		return common.NewAppError(common.CodeStore, "receipt_id is empty", common.ErrInvalidInput)
	}
	_, err := s.col().Doc(rec.ReceiptID).Create(ctx, rec)
	if err != nil {
		s.logger.Error("firestore add failed", zap.String("receipt_id", rec.ReceiptID), zap.Error(err))
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*entity.ReceiptRecord, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
		}
		return nil, err
	}
	return DecodeDocument(snap.Ref.ID, snap.Data()), nil
}

func (s *FirestoreStore) Set(ctx context.Context, id string, rec *entity.ReceiptRecord) error {
	rec.ReceiptID = id
	_, err := s.col().Doc(id).Set(ctx, setData(rec))
	return err
}

// setData flattens the record for full replaces. Writing the struct would
// trip the created_at server-timestamp transform, which skips the field's
// value and stamps the edit time; a replace must keep the original creation
// time. Optional fields follow the struct's omitempty rules.
func setData(rec *entity.ReceiptRecord) map[string]any {
	data := map[string]any{
		"receipt_id": rec.ReceiptID,
		"vendor":     rec.Vendor,
		"financials": rec.Financials,
		"category":   rec.Category,
		"line_items": rec.LineItems,
		"payment":    rec.Payment,
		"created_at": rec.CreatedAt,
	}
	if rec.UserID != "" {
		data["user_id"] = rec.UserID
	}
	if rec.Date != "" {
		data["date"] = rec.Date
	}
	if rec.Time != "" {
		data["time"] = rec.Time
	}
	if rec.InvoiceNumber != "" {
		data["invoice_number"] = rec.InvoiceNumber
	}
	if rec.CountryRegion != "" {
		data["country_region"] = rec.CountryRegion
	}
	if len(rec.TaxDetails) > 0 {
		data["tax_details"] = rec.TaxDetails
	}
	if rec.ImageURL != "" {
		data["image_url"] = rec.ImageURL
	}
	if rec.Note != "" {
		data["note"] = rec.Note
	}
	if rec.IsDuplicate {
		data["is_duplicate"] = true
	}
	return data
}

func (s *FirestoreStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	_, err := s.col().Doc(id).Set(ctx, fields, firestore.MergeAll)
	if status.Code(err) == codes.NotFound {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
	}
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	_, err := s.col().Doc(id).Delete(ctx)
	return err
}

// ListByUser filters on user_id only; creation-time ordering happens
// client-side because legacy documents may lack the field and Firestore
// drops documents missing an orderBy field.
func (s *FirestoreStore) ListByUser(ctx context.Context, userID string) ([]*entity.ReceiptRecord, error) {
	iter := s.col().Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	recs := make([]*entity.ReceiptRecord, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating receipts: %w", err)
		}
		recs = append(recs, DecodeDocument(snap.Ref.ID, snap.Data()))
	}
	sortByCreatedAt(recs)
	return recs, nil
}

func (s *FirestoreStore) Health(ctx context.Context) error {
	// A limited query is the cheapest end-to-end check the SDK offers.
	iter := s.col().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return common.WrapError(err, "firestore health")
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
