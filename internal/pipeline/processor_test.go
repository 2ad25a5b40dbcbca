package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/constants"
	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/ocr"
)

type fakeAnalyzer struct {
	result *ocr.AnalyzeResult
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, data []byte, contentType string) (*ocr.AnalyzeResult, error) {
	return f.result, f.err
}

type fakeBlob struct {
	url string
	err error
}

func (f *fakeBlob) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url + "/" + name, nil
}

type memRepo struct {
	mu      sync.Mutex
	records map[string]*entity.ReceiptRecord
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*entity.ReceiptRecord)}
}

func (r *memRepo) Add(ctx context.Context, rec *entity.ReceiptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ReceiptID] = rec
	return nil
}

func (r *memRepo) Get(ctx context.Context, id string) (*entity.ReceiptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec, nil
	}
	return nil, errors.New("not found")
}

func (r *memRepo) Set(ctx context.Context, id string, rec *entity.ReceiptRecord) error { return nil }
func (r *memRepo) Merge(ctx context.Context, id string, fields map[string]any) error   { return nil }
func (r *memRepo) Delete(ctx context.Context, id string) error                         { return nil }
func (r *memRepo) ListByUser(ctx context.Context, userID string) ([]*entity.ReceiptRecord, error) {
	return nil, nil
}
func (r *memRepo) Health(ctx context.Context) error { return nil }
func (r *memRepo) Close() error                     { return nil }

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func receiptResult() *ocr.AnalyzeResult {
	return &ocr.AnalyzeResult{
		Documents: []ocr.Document{{
			Fields: map[string]ocr.Field{
				"MerchantName": {Content: "Al Baik"},
				"Total":        {Content: "57.50"},
				"ReceiptType":  {ValueString: "Meal"},
			},
		}},
	}
}

func TestProcessStoresNormalizedRecord(t *testing.T) {
	repo := newMemRepo()
	proc := NewProcessor(
		&fakeAnalyzer{result: receiptResult()},
		&fakeBlob{url: "https://img.example"},
		repo,
		zap.NewNop(),
	)

	res, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "receipt.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "u-1", res.Record.UserID)
	assert.Equal(t, "Al Baik", res.Record.Vendor.Name)
	assert.Equal(t, "Meal", res.Record.Category)
	assert.Equal(t, "https://img.example/receipt.jpg", res.Record.ImageURL)
	assert.Equal(t, 1, repo.len())

	stored, err := repo.Get(context.Background(), res.Record.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, res.Record, stored)
}

func TestProcessNoDocumentsNothingPersisted(t *testing.T) {
	repo := newMemRepo()
	proc := NewProcessor(
		&fakeAnalyzer{result: &ocr.AnalyzeResult{}},
		&fakeBlob{url: "https://img.example"},
		repo,
		zap.NewNop(),
	)

	_, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "blank.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.Error(t, err)
	assert.Equal(t, 0, repo.len())
}

func TestProcessAnalyzerFailureNothingPersisted(t *testing.T) {
	repo := newMemRepo()
	proc := NewProcessor(
		&fakeAnalyzer{err: errors.New("azure down")},
		&fakeBlob{url: "https://img.example"},
		repo,
		zap.NewNop(),
	)

	_, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "receipt.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.Error(t, err)
	assert.Equal(t, 0, repo.len())
}

func TestProcessBlobFailureFallsBackToPlaceholder(t *testing.T) {
	repo := newMemRepo()
	proc := NewProcessor(
		&fakeAnalyzer{result: receiptResult()},
		&fakeBlob{err: errors.New("bucket unavailable")},
		repo,
		zap.NewNop(),
	)

	res, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "receipt.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultImageURL, res.Record.ImageURL)
	assert.Equal(t, 1, repo.len())
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	proc := NewProcessor(&fakeAnalyzer{}, &fakeBlob{}, newMemRepo(), zap.NewNop())

	_, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "huge.jpg",
		ContentType: "image/jpeg",
		Data:        make([]byte, constants.MaxUploadBytes+1),
	})
	assert.Error(t, err)
}

func TestProcessRejectsUnsupportedExtension(t *testing.T) {
	proc := NewProcessor(&fakeAnalyzer{}, &fakeBlob{}, newMemRepo(), zap.NewNop())

	_, err := proc.Process(context.Background(), Upload{
		UserID:      "u-1",
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
	})
	assert.Error(t, err)
}

func TestProcessRejectsEmptyUpload(t *testing.T) {
	proc := NewProcessor(&fakeAnalyzer{}, &fakeBlob{}, newMemRepo(), zap.NewNop())

	_, err := proc.Process(context.Background(), Upload{
		UserID:   "u-1",
		Filename: "receipt.jpg",
	})
	assert.Error(t, err)
}
