package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/entity"
)

const receiptsBucket = "receipts"

// BoltStore implements ReceiptRepository on an embedded bbolt file. It is
// the local/dev backend; documents are stored as JSON and decoded through
// the same legacy-tolerant path as Firestore documents.
type BoltStore struct {
	db     *bbolt.DB
	logger *zap.Logger
}

func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(receiptsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating receipts bucket: %w", err)
	}
	logger.Info("bolt store opened", zap.String("path", path))
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Add(ctx context.Context, rec *entity.ReceiptRecord) error {
	return s.put(rec.ReceiptID, rec)
}

func (s *BoltStore) Set(ctx context.Context, id string, rec *entity.ReceiptRecord) error {
	rec.ReceiptID = id
	return s.put(id, rec)
}

func (s *BoltStore) put(id string, rec *entity.ReceiptRecord) error {
	if id == "" {
		return common.NewAppError(common.CodeStore, "receipt_id is empty", common.ErrInvalidInput)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return tx.Bucket([]byte(receiptsBucket)).Put([]byte(id), data)
	})
}

func (s *BoltStore) Get(ctx context.Context, id string) (*entity.ReceiptRecord, error) {
	var rec *entity.ReceiptRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptsBucket)).Get([]byte(id))
		if data == nil {
			return common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		rec = DecodeDocument(id, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptsBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		mergeDoc(doc, fields)
		merged, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling merged receipt: %w", err)
		}
		return bucket.Put([]byte(id), merged)
	})
}

// mergeDoc applies fields onto doc leaf-by-leaf, matching Firestore's
// MergeAll depth: a nested map patches into the existing sub-document
// instead of replacing it wholesale.
func mergeDoc(doc, fields map[string]any) {
	for k, v := range fields {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := doc[k].(map[string]any); ok {
				mergeDoc(cur, sub)
				continue
			}
		}
		doc[k] = v
	}
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Delete([]byte(id))
	})
}

func (s *BoltStore) ListByUser(ctx context.Context, userID string) ([]*entity.ReceiptRecord, error) {
	recs := make([]*entity.ReceiptRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var doc map[string]any
			if err := json.Unmarshal(v, &doc); err != nil {
				s.logger.Warn("skipping undecodable receipt", zap.ByteString("key", k), zap.Error(err))
				return nil
			}
			rec := DecodeDocument(string(k), doc)
			if rec.UserID == userID {
				recs = append(recs, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(recs)
	return recs, nil
}

func (s *BoltStore) Health(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(receiptsBucket)) == nil {
			return common.WrapError(common.ErrStore, "receipts bucket missing")
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
