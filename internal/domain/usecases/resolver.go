// Package usecases - resolver.go maps noisy SDS file names onto catalog chemicals.
package usecases

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// MatchTolerance is the largest edit distance accepted as a match.
const MatchTolerance = 3

// NormalizeChemicalName turns a file-derived label into the form used for
// matching: "01_Sodium_Chloride.pdf" becomes "sodium chloride".
// It never fails and is idempotent.
func NormalizeChemicalName(raw string) string {
	s := strings.ReplaceAll(raw, "_", " ")

	for {
		s = strings.TrimSpace(s)
		if len(s) < 4 || !strings.EqualFold(s[len(s)-4:], ".pdf") {
			break
		}
		s = s[:len(s)-4]
	}

	s = strings.TrimLeftFunc(s, isLabelNoise)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

func isLabelNoise(r rune) bool {
	return (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
}

// SanitizeForStorage makes a base name safe to use as an on-disk file name.
// Runes outside [a-zA-Z0-9._-] become '_', the result is lower-cased and the
// extension is forced to .pdf.
func SanitizeForStorage(baseName string) string {
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	var sb strings.Builder
	sb.Grow(len(stem) + 4)
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteByte('_')
		}
	}
	sb.WriteString(".pdf")
	return sb.String()
}

// FindClosestChemical returns the catalog entry with the lowest
// case-insensitive edit distance to label, or nil when the best distance
// exceeds MatchTolerance. Ties keep the entry seen first.
func FindClosestChemical(label string, catalog []entities.CatalogEntry) *entities.MatchResult {
	target := strings.ToLower(label)

	bestDistance := math.MaxInt
	var best *entities.CatalogEntry
	for i := range catalog {
		d := levenshtein.ComputeDistance(target, strings.ToLower(catalog[i].Name))
		if d < bestDistance {
			bestDistance = d
			best = &catalog[i]
		}
	}

	if best == nil || bestDistance > MatchTolerance {
		return nil
	}
	return &entities.MatchResult{Entry: *best, Distance: bestDistance}
}

// ChemicalResolver resolves raw labels against the live catalog.
// It holds no state between calls and is safe for concurrent use.
type ChemicalResolver struct {
	catalog ports.CatalogReader
}

// NewChemicalResolver creates a resolver reading from catalog.
func NewChemicalResolver(catalog ports.CatalogReader) *ChemicalResolver {
	return &ChemicalResolver{catalog: catalog}
}

// Resolve normalizes rawLabel and matches it against a fresh catalog read.
// A nil result with a nil error means no confident match. Catalog read
// errors are returned unchanged.
func (r *ChemicalResolver) Resolve(ctx context.Context, rawLabel string) (*entities.MatchResult, error) {
	catalog, err := r.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FindClosestChemical(NormalizeChemicalName(rawLabel), catalog), nil
}

// Suggest ranks catalog entries that loosely resemble rawLabel, for manual
// review of labels that did not resolve.
func (r *ChemicalResolver) Suggest(ctx context.Context, rawLabel string, limit int) ([]entities.CatalogEntry, error) {
	catalog, err := r.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return SuggestChemicals(NormalizeChemicalName(rawLabel), catalog, limit), nil
}

// catalogSource adapts a catalog slice to fuzzy.Source over lower-cased names.
type catalogSource []entities.CatalogEntry

func (c catalogSource) String(i int) string { return strings.ToLower(c[i].Name) }
func (c catalogSource) Len() int            { return len(c) }

// SuggestChemicals returns up to limit entries ranked by fuzzy subsequence
// score, falling back to the nearest names by edit distance when the label
// is not a subsequence of any name.
func SuggestChemicals(label string, catalog []entities.CatalogEntry, limit int) []entities.CatalogEntry {
	if label == "" || len(catalog) == 0 || limit <= 0 {
		return nil
	}

	matches := fuzzy.FindFrom(label, catalogSource(catalog))
	out := make([]entities.CatalogEntry, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			return out
		}
		out = append(out, catalog[m.Index])
	}
	if len(out) > 0 {
		return out
	}

	type scored struct {
		idx  int
		dist int
	}
	ranked := make([]scored, len(catalog))
	for i, e := range catalog {
		ranked[i] = scored{idx: i, dist: levenshtein.ComputeDistance(label, strings.ToLower(e.Name))}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].dist < ranked[j].dist
	})
	for _, s := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, catalog[s.idx])
	}
	return out
}
