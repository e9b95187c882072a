// Package usecases - sds_import.go ingests SDS documents and links them to chemicals.
package usecases

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// SDSImportUseCase handles bulk SDS ingestion.
type SDSImportUseCase struct {
	catalog     ports.CatalogReader
	chemicals   ports.ChemicalRepository
	documents   ports.SDSRepository
	files       ports.DocumentStore
	logger      *zap.Logger
	workers     int
	suggestions int
	now         func() time.Time
}

// NewSDSImportUseCase creates an SDSImportUseCase with injected dependencies.
func NewSDSImportUseCase(
	chemicals ports.ChemicalRepository,
	documents ports.SDSRepository,
	files ports.DocumentStore,
	logger *zap.Logger,
	workers, suggestions int,
) *SDSImportUseCase {
	if workers <= 0 {
		workers = 4
	}
	if suggestions < 0 {
		suggestions = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SDSImportUseCase{
		catalog:     chemicals,
		chemicals:   chemicals,
		documents:   documents,
		files:       files,
		logger:      logger,
		workers:     workers,
		suggestions: suggestions,
		now:         time.Now,
	}
}

// ImportBatch stores every upload and links it to the closest chemical.
// The catalog is read once so every file in the batch is matched against
// the same snapshot. A catalog read failure aborts the batch; failures of
// single files are reported on their item. When ctx ends mid-batch the
// report of what was already stored is returned along with ctx's error.
func (uc *SDSImportUseCase) ImportBatch(ctx context.Context, uploads []entities.Upload, uploadedBy string) (*entities.ImportReport, error) {
	catalog, err := uc.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]entities.ImportItem, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i := range uploads {
		g.Go(func() error {
			items[i] = uc.importOne(gctx, uploads[i], catalog, uploadedBy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &entities.ImportReport{Items: items}
	for _, item := range items {
		switch {
		case item.Error != "":
			report.Failed++
		case item.Match != nil:
			report.Matched++
		default:
			report.NeedsReview++
		}
	}

	uc.logger.Info("sds batch imported",
		zap.Int("files", len(uploads)),
		zap.Int("matched", report.Matched),
		zap.Int("needs_review", report.NeedsReview),
		zap.Int("failed", report.Failed),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// ImportFile imports a single SDS file from disk.
func (uc *SDSImportUseCase) ImportFile(ctx context.Context, path, uploadedBy string) (*entities.ImportItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	report, err := uc.ImportBatch(ctx, []entities.Upload{{Name: filepath.Base(path), Data: data}}, uploadedBy)
	if err != nil {
		return nil, err
	}
	item := report.Items[0]
	if item.Error != "" {
		return &item, fmt.Errorf("importing %s: %s", path, item.Error)
	}
	return &item, nil
}

func (uc *SDSImportUseCase) importOne(ctx context.Context, up entities.Upload, catalog []entities.CatalogEntry, uploadedBy string) entities.ImportItem {
	label := NormalizeChemicalName(up.Name)
	item := entities.ImportItem{FileName: up.Name, Label: label}

	if err := ctx.Err(); err != nil {
		item.Error = err.Error()
		return item
	}

	match := FindClosestChemical(label, catalog)

	stored, err := uc.files.Put(ctx, SanitizeForStorage(up.Name), up.Data)
	if err != nil {
		uc.logger.Warn("storing sds file failed", zap.String("file", up.Name), zap.Error(err))
		item.Error = err.Error()
		return item
	}

	now := uc.now()
	doc := &entities.SDSDocument{
		ID:           uuid.NewString(),
		OriginalName: up.Name,
		StoredName:   stored,
		Label:        label,
		Status:       entities.SDSNeedsReview,
		Size:         int64(len(up.Data)),
		UploadedBy:   uploadedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if match != nil {
		doc.ChemicalID = match.Entry.ID
		doc.Distance = match.Distance
		doc.Status = entities.SDSMatched
	}

	if err := uc.documents.SaveDocument(ctx, doc); err != nil {
		uc.logger.Warn("saving sds record failed", zap.String("file", up.Name), zap.Error(err))
		if rmErr := uc.files.Remove(context.WithoutCancel(ctx), stored); rmErr != nil {
			uc.logger.Warn("removing orphaned sds file failed", zap.String("stored_name", stored), zap.Error(rmErr))
		}
		item.Error = err.Error()
		return item
	}

	item.Document = doc
	item.Match = match
	if match == nil {
		item.Suggestions = SuggestChemicals(label, catalog, uc.suggestions)
		uc.logger.Debug("sds needs review", zap.String("file", up.Name), zap.String("label", label))
	}
	return item
}

// Assign links a document to a chemical by hand.
func (uc *SDSImportUseCase) Assign(ctx context.Context, documentID, chemicalID string) (*entities.SDSDocument, error) {
	doc, err := uc.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	chem, err := uc.chemicals.Get(ctx, chemicalID)
	if err != nil {
		return nil, fmt.Errorf("chemical %s: %w", chemicalID, err)
	}

	doc.ChemicalID = chem.ID
	doc.Status = entities.SDSMatched
	doc.Distance = 0
	doc.UpdatedAt = uc.now()
	if err := uc.documents.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument returns one document record.
func (uc *SDSImportUseCase) GetDocument(ctx context.Context, id string) (*entities.SDSDocument, error) {
	return uc.documents.GetDocument(ctx, id)
}

// ListDocuments returns document records matching filter.
func (uc *SDSImportUseCase) ListDocuments(ctx context.Context, filter entities.SDSFilter) ([]entities.SDSDocument, error) {
	return uc.documents.ListDocuments(ctx, filter)
}

// OpenDocument returns a document record with a reader for its stored file.
// The caller closes the reader.
func (uc *SDSImportUseCase) OpenDocument(ctx context.Context, id string) (*entities.SDSDocument, io.ReadCloser, error) {
	doc, err := uc.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.files.Open(ctx, doc.StoredName)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// DeleteDocument removes the record and its stored file.
func (uc *SDSImportUseCase) DeleteDocument(ctx context.Context, id string) error {
	doc, err := uc.documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.documents.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := uc.files.Remove(ctx, doc.StoredName); err != nil {
		uc.logger.Warn("removing sds file failed", zap.String("stored_name", doc.StoredName), zap.Error(err))
	}
	return nil
}
