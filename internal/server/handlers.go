package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/constants"
	"github.com/qaydhq/qayd/internal/async"
	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/pipeline"
	"github.com/qaydhq/qayd/internal/warranty"
)

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.repo.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queue_depth": s.queue.Depth()})
}

// handleUpload processes one receipt image synchronously and returns the
// stored record.
func (s *Server) handleUpload(c *gin.Context) {
	up, err := s.readUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	up.UserID = userID(c)

	res, err := s.proc.Process(c.Request.Context(), *up)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, res.Record)
}

// handleBatchUpload accepts multiple images, queues them for background
// processing and returns 202 with a trace ID per file.
func (s *Server) handleBatchUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "invalid multipart form", err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "no files in request", nil))
		return
	}

	uid := userID(c)
	accepted := make([]gin.H, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			respondError(c, err)
			return
		}
		job := async.Job{
			TraceID:     uuid.NewString(),
			UserID:      uid,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
			SubmittedAt: time.Now().UTC(),
		}
		if !s.queue.Enqueue(c.Request.Context(), job) {
			respondError(c, common.NewAppError(common.CodeInternal, "service is shutting down", nil))
			return
		}
		accepted = append(accepted, gin.H{"filename": fh.Filename, "trace_id": job.TraceID})
	}

	s.logger.Info("batch queued", zap.String("user_id", uid), zap.Int("files", len(accepted)))
	respondData(c, http.StatusAccepted, gin.H{"queued": len(accepted), "files": accepted})
}

func (s *Server) handleList(c *gin.Context) {
	records, err := s.repo.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not list receipts", err))
		return
	}
	respondData(c, http.StatusOK, records)
}

func (s *Server) handleGet(c *gin.Context) {
	rec, err := s.ownedReceipt(c)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, rec)
}

// handleReplace overwrites a receipt wholesale. The record keeps its ID,
// owner and creation time regardless of what the client sends.
func (s *Server) handleReplace(c *gin.Context) {
	existing, err := s.ownedReceipt(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var incoming entity.ReceiptRecord
	if err := c.ShouldBindJSON(&incoming); err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "invalid receipt payload", err))
		return
	}
	incoming.ReceiptID = existing.ReceiptID
	incoming.UserID = existing.UserID
	incoming.CreatedAt = existing.CreatedAt

	if err := s.repo.Set(c.Request.Context(), existing.ReceiptID, &incoming); err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not update receipt", err))
		return
	}
	respondData(c, http.StatusOK, &incoming)
}

// handlePatch merges the supplied fields into the stored document.
func (s *Server) handlePatch(c *gin.Context) {
	existing, err := s.ownedReceipt(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "invalid patch payload", err))
		return
	}
	// Identity fields are not patchable.
	delete(fields, "receipt_id")
	delete(fields, "user_id")
	delete(fields, "created_at")
	if len(fields) == 0 {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "no patchable fields in payload", nil))
		return
	}

	if err := s.repo.Merge(c.Request.Context(), existing.ReceiptID, fields); err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not patch receipt", err))
		return
	}

	updated, err := s.repo.Get(c.Request.Context(), existing.ReceiptID)
	if err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not reload receipt", err))
		return
	}
	respondData(c, http.StatusOK, updated)
}

func (s *Server) handleDelete(c *gin.Context) {
	existing, err := s.ownedReceipt(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.repo.Delete(c.Request.Context(), existing.ReceiptID); err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not delete receipt", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSetWarranty attaches or clears warranty tracking on one line item.
// The expiry date is derived server-side from the receipt date and period.
func (s *Server) handleSetWarranty(c *gin.Context) {
	existing, err := s.ownedReceipt(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		ItemID      int  `json:"item_id" binding:"required"`
		HasWarranty bool `json:"has_warranty"`
		PeriodDays  int  `json:"period_days"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "item_id is required", err))
		return
	}
	if req.HasWarranty && req.PeriodDays <= 0 {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "period_days must be positive", nil))
		return
	}

	updated := false
	for i := range existing.LineItems {
		if existing.LineItems[i].ID != req.ItemID {
			continue
		}
		if !req.HasWarranty {
			existing.LineItems[i].Warranty = nil
		} else {
			existing.LineItems[i].Warranty = &entity.Warranty{
				HasWarranty: true,
				PeriodDays:  req.PeriodDays,
				ExpiryDate:  warranty.ExpiryDate(existing.Date, existing.CreatedAt, req.PeriodDays, nil),
			}
		}
		updated = true
		break
	}
	if !updated {
		respondError(c, common.NewAppError(common.CodeNotFound, "line item not found", nil))
		return
	}

	if err := s.repo.Set(c.Request.Context(), existing.ReceiptID, existing); err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not update warranty", err))
		return
	}
	respondData(c, http.StatusOK, existing)
}

// handleExport streams the user's receipts as an Excel workbook.
func (s *Server) handleExport(c *gin.Context) {
	records, err := s.repo.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "could not list receipts", err))
		return
	}

	f, err := s.export.Workbook(records)
	if err != nil {
		respondError(c, common.NewAppError(common.CodeInternal, "could not build workbook", err))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("receipts-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(c.Writer); err != nil {
		s.logger.Error("export stream failed", zap.Error(err))
	}
}

func (s *Server) handleChatHealth(c *gin.Context) {
	res, err := s.chat.Health(c.Request.Context())
	if err != nil {
		respondError(c, common.NewAppError(common.CodeInternal, "chat backend unreachable", err))
		return
	}
	respondData(c, http.StatusOK, res)
}

func (s *Server) handleChatConnect(c *gin.Context) {
	var req struct {
		ServerPath string `json:"server_path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "server_path is required", err))
		return
	}
	status, err := s.chat.Connect(c.Request.Context(), req.ServerPath)
	if err != nil {
		respondError(c, common.NewAppError(common.CodeInternal, "could not connect chat backend", err))
		return
	}
	respondData(c, http.StatusOK, gin.H{"status": status})
}

func (s *Server) handleChatMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewAppError(common.CodeInvalidInput, "message is required", err))
		return
	}
	answer, err := s.chat.Chat(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, common.NewAppError(common.CodeInternal, "chat request failed", err))
		return
	}
	respondData(c, http.StatusOK, gin.H{"response": answer})
}

func (s *Server) handleChatReset(c *gin.Context) {
	if err := s.chat.Reset(c.Request.Context()); err != nil {
		respondError(c, common.NewAppError(common.CodeInternal, "could not reset conversation", err))
		return
	}
	respondData(c, http.StatusOK, gin.H{"status": "reset"})
}

// ownedReceipt loads the receipt in the path and verifies it belongs to the
// authenticated user. Foreign receipts read as not found, not forbidden.
func (s *Server) ownedReceipt(c *gin.Context) (*entity.ReceiptRecord, error) {
	id := c.Param("id")
	if id == "" {
		return nil, common.NewAppError(common.CodeInvalidInput, "missing receipt id", nil)
	}
	rec, err := s.repo.Get(c.Request.Context(), id)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, common.NewAppError(common.CodeNotFound, "receipt not found", err)
		}
		return nil, common.NewAppError(common.CodeStore, "could not load receipt", err)
	}
	if rec.UserID != userID(c) {
		return nil, common.NewAppError(common.CodeNotFound, "receipt not found", nil)
	}
	return rec, nil
}

func (s *Server) readUpload(c *gin.Context, field string) (*pipeline.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("missing %q file field", field), err)
	}
	data, err := readFileHeader(fh)
	if err != nil {
		return nil, err
	}
	return &pipeline.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > constants.MaxUploadBytes {
		return nil, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s exceeds %d byte limit", fh.Filename, constants.MaxUploadBytes), nil)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, common.NewAppError(common.CodeInternal, "could not open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
	if err != nil {
		return nil, common.NewAppError(common.CodeInternal, "could not read upload", err)
	}
	if len(data) > constants.MaxUploadBytes {
		return nil, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s exceeds %d byte limit", fh.Filename, constants.MaxUploadBytes), nil)
	}
	return data, nil
}
