// Package usecases - inventory.go manages chemical stock records.
package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// InventoryUseCase handles chemical CRUD and search.
type InventoryUseCase struct {
	chemicals ports.ChemicalRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewInventoryUseCase creates an InventoryUseCase.
func NewInventoryUseCase(chemicals ports.ChemicalRepository, logger *zap.Logger) *InventoryUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryUseCase{chemicals: chemicals, logger: logger, now: time.Now}
}

// Create validates and stores a new chemical.
func (uc *InventoryUseCase) Create(ctx context.Context, c entities.Chemical) (*entities.Chemical, error) {
	if err := validateChemical(&c); err != nil {
		return nil, err
	}
	now := uc.now()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := uc.chemicals.Create(ctx, &c); err != nil {
		return nil, err
	}
	uc.logger.Info("chemical created", zap.String("id", c.ID), zap.String("name", c.Name))
	return &c, nil
}

// Get returns one chemical.
func (uc *InventoryUseCase) Get(ctx context.Context, id string) (*entities.Chemical, error) {
	return uc.chemicals.Get(ctx, id)
}

// Update replaces the editable fields of a chemical.
func (uc *InventoryUseCase) Update(ctx context.Context, id string, c entities.Chemical) (*entities.Chemical, error) {
	if err := validateChemical(&c); err != nil {
		return nil, err
	}
	existing, err := uc.chemicals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = uc.now()
	if err := uc.chemicals.Update(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a chemical.
func (uc *InventoryUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.chemicals.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("chemical deleted", zap.String("id", id))
	return nil
}

// List returns every chemical.
func (uc *InventoryUseCase) List(ctx context.Context) ([]entities.Chemical, error) {
	return uc.chemicals.List(ctx)
}

// Catalog returns every chemical as a catalog entry.
func (uc *InventoryUseCase) Catalog(ctx context.Context) ([]entities.CatalogEntry, error) {
	return uc.chemicals.ListAll(ctx)
}

// Search returns chemicals whose name, formula or CAS number contains query,
// ignoring case and accents. An empty query lists everything.
func (uc *InventoryUseCase) Search(ctx context.Context, query string) ([]entities.Chemical, error) {
	all, err := uc.chemicals.List(ctx)
	if err != nil {
		return nil, err
	}
	q := foldForSearch(query)
	if q == "" {
		return all, nil
	}

	var out []entities.Chemical
	for _, c := range all {
		if strings.Contains(foldForSearch(c.Name), q) ||
			strings.Contains(foldForSearch(c.Formula), q) ||
			strings.Contains(foldForSearch(c.CASNumber), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Expiring returns chemicals that expire before the given time.
func (uc *InventoryUseCase) Expiring(ctx context.Context, before time.Time) ([]entities.Chemical, error) {
	all, err := uc.chemicals.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []entities.Chemical
	for _, c := range all {
		if c.ExpiresAt != nil && c.ExpiresAt.Before(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

func validateChemical(c *entities.Chemical) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Unit = strings.TrimSpace(c.Unit)
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", entities.ErrValidation)
	case c.Unit == "":
		return fmt.Errorf("%w: unit is required", entities.ErrValidation)
	case c.Quantity < 0:
		return fmt.Errorf("%w: quantity cannot be negative", entities.ErrValidation)
	}
	return nil
}

func foldForSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
