// Package catalog imports the product catalog from JSON and exposes it to
// the assistant as a product lookup.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/database"
)

// File is the catalog.json document.
type File struct {
	Categories []CategoryEntry `json:"categories" validate:"dive"`
	Products   []ProductEntry  `json:"products"   validate:"dive"`
}

type CategoryEntry struct {
	Name        string `json:"name"        validate:"required"`
	Description string `json:"description"`
}

// ProductEntry is one catalog product. Active defaults to true when absent.
type ProductEntry struct {
	ID          int64   `json:"id"          validate:"required,min=1"`
	Name        string  `json:"name"        validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"       validate:"min=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Popular     bool    `json:"is_popular"`
	InStock     bool    `json:"in_stock"`
	Active      *bool   `json:"is_active"`
}

// Writer is the part of database.Store the importer needs.
type Writer interface {
	UpsertCategory(ctx context.Context, name, description string) (int64, error)
	UpsertProduct(ctx context.Context, product *database.Product) error
}

// Stats reports what an import wrote.
type Stats struct {
	Categories int
	Products   int
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	seen := make(map[int64]bool, len(f.Products))
	for _, p := range f.Products {
		if seen[p.ID] {
			return nil, fmt.Errorf("invalid catalog: duplicate product id %d", p.ID)
		}
		seen[p.ID] = true
	}
	return &f, nil
}

// ImportFile reads path and imports it. See Import.
func ImportFile(ctx context.Context, w Writer, path string, log *slog.Logger) (Stats, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return Stats{}, err
	}
	return Import(ctx, w, f, log)
}

// Import upserts every category and product of f. Categories named only by
// products are created on the fly. Re-importing the same file is a no-op
// apart from updated_at.
func Import(ctx context.Context, w Writer, f *File, log *slog.Logger) (Stats, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "catalog")

	var stats Stats
	categoryIDs := make(map[string]int64)

	ensureCategory := func(name, description string) (int64, error) {
		key := strings.ToLower(strings.TrimSpace(name))
		if id, ok := categoryIDs[key]; ok && description == "" {
			return id, nil
		}
		id, err := w.UpsertCategory(ctx, strings.TrimSpace(name), description)
		if err != nil {
			return 0, fmt.Errorf("failed to import category %q: %w", name, err)
		}
		if _, ok := categoryIDs[key]; !ok {
			stats.Categories++
		}
		categoryIDs[key] = id
		return id, nil
	}

	for _, c := range f.Categories {
		if _, err := ensureCategory(c.Name, c.Description); err != nil {
			return stats, err
		}
	}

	for _, entry := range f.Products {
		p := &database.Product{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Price:       entry.Price,
			ImageURL:    entry.ImageURL,
			IsPopular:   entry.Popular,
			IsActive:    entry.Active == nil || *entry.Active,
			InStock:     entry.InStock,
		}
		if p.ImageURL == "" {
			p.ImageURL = assistant.ProductImageURL(strconv.FormatInt(p.ID, 10))
		}
		if strings.TrimSpace(entry.Category) != "" {
			id, err := ensureCategory(entry.Category, "")
			if err != nil {
				return stats, err
			}
			p.CategoryID = &id
		}

		if err := w.UpsertProduct(ctx, p); err != nil {
			return stats, fmt.Errorf("failed to import product %d: %w", entry.ID, err)
		}
		stats.Products++
	}

	log.InfoContext(ctx, "Catalog imported", "categories", stats.Categories, "products", stats.Products)
	return stats, nil
}

// ProductReader is the part of database.Store the lookup needs.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*database.Product, error)
}

// Lookup resolves product IDs quoted by the assistant against the store.
type Lookup struct {
	Store ProductReader
}

// ErrBadProductID is returned for IDs that are not catalog integers.
var ErrBadProductID = errors.New("invalid product id")

func (l Lookup) LookupProduct(ctx context.Context, id string) (assistant.ProductDetail, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return assistant.ProductDetail{}, fmt.Errorf("%w: %q", ErrBadProductID, id)
	}

	p, err := l.Store.GetProduct(ctx, n)
	if err != nil {
		return assistant.ProductDetail{}, err
	}

	d := assistant.ProductDetail{
		ID:          strconv.FormatInt(p.ID, 10),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		InStock:     p.InStock,
	}
	if p.CategoryName != nil {
		d.Category = *p.CategoryName
	}
	return d, nil
}
