package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/qaydhq/qayd/constants"
	"github.com/qaydhq/qayd/internal/blob"
	"github.com/qaydhq/qayd/internal/common"
	"github.com/qaydhq/qayd/internal/entity"
	"github.com/qaydhq/qayd/internal/imaging"
	"github.com/qaydhq/qayd/internal/normalize"
	"github.com/qaydhq/qayd/internal/ocr"
	"github.com/qaydhq/qayd/internal/repository"
)

// Upload carries one submitted image through the pipeline.
type Upload struct {
	UserID      string
	Filename    string
	ContentType string
	Data        []byte
}

// Result reports what the pipeline produced for an upload.
type Result struct {
	Record   *entity.ReceiptRecord
	ImageURL string
}

// Processor coordinates validation, HEIC conversion, OCR, image upload,
// normalization and persistence for a single receipt image. OCR and the
// image upload run concurrently; a failed upload degrades to a placeholder
// URL rather than failing the receipt.
type Processor struct {
	analyzer ocr.Analyzer
	blobs    blob.Store
	repo     repository.ReceiptRepository
	norm     *normalize.Normalizer
	schema   map[string]any
	logger   *zap.Logger
}

func NewProcessor(analyzer ocr.Analyzer, blobs blob.Store, repo repository.ReceiptRepository, logger *zap.Logger) *Processor {
	return &Processor{
		analyzer: analyzer,
		blobs:    blobs,
		repo:     repo,
		norm:     normalize.New(),
		schema:   normalize.BuildRecordSchema(),
		logger:   logger,
	}
}

// Process runs one upload end to end. Nothing is persisted unless the OCR
// result normalizes and validates cleanly.
func (p *Processor) Process(ctx context.Context, up Upload) (*Result, error) {
	if err := p.validate(up); err != nil {
		return nil, err
	}

	data, contentType, filename := up.Data, up.ContentType, up.Filename
	if imaging.IsHEIC(data, contentType) {
		converted, err := imaging.ToJPEG(data, constants.MaxUploadBytes)
		if err != nil {
			return nil, common.NewAppError(common.CodeInvalidInput, "could not convert HEIC image", err)
		}
		p.logger.Info("converted HEIC upload",
			zap.String("filename", filename),
			zap.Int("original_bytes", len(data)),
			zap.Int("converted_bytes", len(converted)))
		data = converted
		contentType = "image/jpeg"
		filename = replaceExt(filename, ".jpg")
	}

	var (
		analysis *ocr.AnalyzeResult
		imageURL string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := p.analyzer.Analyze(gctx, data, contentType)
		if err != nil {
			return fmt.Errorf("analyzing receipt: %w", err)
		}
		analysis = res
		return nil
	})
	g.Go(func() error {
		url, err := p.blobs.Upload(gctx, filename, data, contentType)
		if err != nil {
			// The receipt is still worth keeping without its image.
			p.logger.Warn("image upload failed, using placeholder",
				zap.String("filename", filename), zap.Error(err))
			imageURL = constants.DefaultImageURL
			return nil
		}
		imageURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec, err := p.norm.Normalize(analysis)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, "no receipt found in image", err)
	}
	rec.UserID = up.UserID
	rec.ImageURL = imageURL

	if err := p.checkSchema(rec); err != nil {
		return nil, err
	}

	if err := p.repo.Add(ctx, rec); err != nil {
		return nil, common.NewAppError(common.CodeStore, "could not save receipt", err)
	}

	p.logger.Info("receipt processed",
		zap.String("receipt_id", rec.ReceiptID),
		zap.String("user_id", rec.UserID),
		zap.String("vendor", rec.Vendor.Name),
		zap.String("category", rec.Category))
	return &Result{Record: rec, ImageURL: imageURL}, nil
}

func (p *Processor) validate(up Upload) error {
	if len(up.Data) == 0 {
		return common.NewAppError(common.CodeInvalidInput, "empty upload", nil)
	}
	if len(up.Data) > constants.MaxUploadBytes {
		return common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("file exceeds %d byte limit", constants.MaxUploadBytes), nil)
	}
	ext := filepath.Ext(up.Filename)
	if !constants.IsAllowedExt(ext) {
		return common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	return nil
}

func (p *Processor) checkSchema(rec *entity.ReceiptRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return common.NewAppError(common.CodeInternal, "could not encode record", err)
	}
	if err := normalize.ValidateAgainstSchema(p.schema, raw); err != nil {
		return common.NewAppError(common.CodeValidation, "normalized record failed validation", err)
	}
	return nil
}

func replaceExt(name, ext string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i] + ext
	}
	return name + ext
}
