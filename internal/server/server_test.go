package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/async"
	"github.com/qaydhq/qayd/internal/chat"
	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/export"
	"github.com/qaydhq/qayd/internal/ocr"
	"github.com/qaydhq/qayd/internal/pipeline"
)

const testSecret = "test-secret"

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, data []byte, contentType string) (*ocr.AnalyzeResult, error) {
	return &ocr.AnalyzeResult{
		Documents: []ocr.Document{{
			Fields: map[string]ocr.Field{
				"MerchantName": {Content: "Al Baik"},
				"Total":        {Content: "57.50"},
			},
		}},
	}, nil
}

type stubBlob struct{}

func (stubBlob) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	return "https://img.example/" + name, nil
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
	clone := *rec
	r.records[rec.ReceiptID] = &clone
	return nil
}

func (r *memRepo) Get(ctx context.Context, id string) (*entity.ReceiptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
	}
	clone := *rec
	return &clone, nil
}

func (r *memRepo) Set(ctx context.Context, id string, rec *entity.ReceiptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	clone.ReceiptID = id
	r.records[id] = &clone
	return nil
}

func (r *memRepo) Merge(ctx context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("receipt %s", id))
	}
	if note, ok := fields["note"].(string); ok {
		rec.Note = note
	}
	if category, ok := fields["category"].(string); ok {
		rec.Category = category
	}
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *memRepo) ListByUser(ctx context.Context, userID string) ([]*entity.ReceiptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ReceiptRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRepo) Health(ctx context.Context) error { return nil }
func (r *memRepo) Close() error                     { return nil }

func newTestServer(t *testing.T) (*Server, *memRepo) {
	t.Helper()
	logger := zap.NewNop()
	repo := newMemRepo()
	proc := pipeline.NewProcessor(stubAnalyzer{}, stubBlob{}, repo, logger)
	queue := async.NewUploadQueue(proc, logger, async.WithWorkers(1))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		queue.Shutdown(ctx)
	})

	chatBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(chat.HealthResult{Status: "ok", Connected: true})
		case "/chat":
			_ = json.NewEncoder(w).Encode(chat.ChatResult{Response: "42.00 SAR on fuel"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}
	}))
	t.Cleanup(chatBackend.Close)

	srv := New(
		common.ServerConfig{Addr: ":0", JWTSecret: testSecret},
		repo,
		proc,
		queue,
		export.NewService(logger),
		chat.NewClient(chat.Config{BaseURL: chatBackend.URL}, logger),
		logger,
	)
	return srv, repo
}

func bearerToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, req)
	return w
}

func seedReceipt(t *testing.T, repo *memRepo, id, userID string) {
	t.Helper()
	require.NoError(t, repo.Add(context.Background(), &entity.ReceiptRecord{
		ReceiptID:  id,
		UserID:     userID,
		Vendor:     entity.Vendor{Name: "Al Baik"},
		Financials: entity.Financials{Total: "57.50", Currency: "SAR"},
		Category:   "Meal",
		LineItems:  []entity.LineItem{{ID: 1, Description: "meal", Quantity: "1", TotalPrice: "57.50"}},
		CreatedAt:  time.Now().UTC(),
	}))
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	w := doRequest(srv, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = doRequest(srv, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestUploadReceipt(t *testing.T) {
	srv, repo := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "receipt.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts", &body)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := doRequest(srv, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data entity.ReceiptRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.Data.UserID)
	assert.Equal(t, "Al Baik", resp.Data.Vendor.Name)

	stored, err := repo.Get(context.Background(), resp.Data.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", stored.UserID)
}

func TestBatchUploadAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range []string{"a.jpg", "b.jpg"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("jpeg bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/batch", &body)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := doRequest(srv, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"queued":2`)
}

func TestListScopedToUser(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")
	seedReceipt(t, repo, "rec-2", "u-2")

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rec-1")
	assert.NotContains(t, w.Body.String(), "rec-2")
}

func TestGetForeignReceiptIsNotFound(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-2")

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/rec-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	w := doRequest(srv, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchReceipt(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	payload := `{"note":"team lunch","user_id":"u-99"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/receipts/rec-1", strings.NewReader(payload))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "team lunch", stored.Note)
	// identity fields cannot be patched
	assert.Equal(t, "u-1", stored.UserID)
}

func TestReplaceReceiptKeepsIdentity(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	replacement := entity.ReceiptRecord{
		ReceiptID: "spoofed",
		UserID:    "u-99",
		Vendor:    entity.Vendor{Name: "Panda"},
		Financials: entity.Financials{
			Total:    "23.00",
			Currency: "SAR",
		},
	}
	raw, err := json.Marshal(replacement)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/receipts/rec-1", bytes.NewReader(raw))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", stored.ReceiptID)
	assert.Equal(t, "u-1", stored.UserID)
	assert.Equal(t, "Panda", stored.Vendor.Name)
}

func TestSetWarranty(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	payload := `{"item_id":1,"has_warranty":true,"period_days":365}`
	req := httptest.NewRequest(http.MethodPut, "/api/receipts/rec-1/warranty", strings.NewReader(payload))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, stored.LineItems[0].Warranty)
	assert.True(t, stored.LineItems[0].Warranty.HasWarranty)
	assert.Equal(t, 365, stored.LineItems[0].Warranty.PeriodDays)
	assert.NotEmpty(t, stored.LineItems[0].Warranty.ExpiryDate)
}

func TestSetWarrantyUnknownItem(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	payload := `{"item_id":9,"has_warranty":true,"period_days":30}`
	req := httptest.NewRequest(http.MethodPut, "/api/receipts/rec-1/warranty", strings.NewReader(payload))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(srv, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReceipt(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	req := httptest.NewRequest(http.MethodDelete, "/api/receipts/rec-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	w := doRequest(srv, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := repo.Get(context.Background(), "rec-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExportWorkbook(t *testing.T) {
	srv, repo := newTestServer(t)
	seedReceipt(t, repo, "rec-1", "u-1")

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/export", nil)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestChatProxy(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"fuel spend?"}`))
	req.Header.Set("Authorization", bearerToken(t, "u-1"))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "42.00 SAR on fuel")
}

func TestChatHealthProxy(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", bearerToken(t, "u-1"))

	w := doRequest(srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":true`)
}
