package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icaro1518/ml-discounts/models"
	"github.com/icaro1518/ml-discounts/table"
)

// denyListColumns are removed after flattening regardless of source: raw
// nested blobs, thumbnails, currency id, internal ordering fields, and all
// brand columns (the brand value only feeds the flatten step).
var denyListColumns = []string{
	"thumbnail_id", "thumbnail", "currency_id", "order_backend",
	"use_thumbnail_id", "attributes", "installments",
	"differential_pricing", "inventory_id", "variation_filters",
	"variations_data", "shipping", "seller", "brand_id",
	"brand_name", "brand_value_id", "brand_attribute_group_id",
	"brand_attribute_group_name", "brand_value_struct", "brand_values",
	"brand_source", "brand_value_type", "brand",
}

// flattenColumns are the record-valued columns expanded into prefixed
// scalar columns; absent columns are silently skipped.
var flattenColumns = []string{"shipping", "seller", "installments", "brand"}

// ItemHarvester paginates through category search results, one page at a
// time, and writes one flat file per (category, offset) page.
type ItemHarvester struct {
	s       *Session
	catalog *Catalog
}

// NewItemHarvester builds an item harvester over the session's catalog.
func NewItemHarvester(s *Session, catalog *Catalog) *ItemHarvester {
	return &ItemHarvester{s: s, catalog: catalog}
}

// FetchPage retrieves and normalizes a single search page. An empty
// upstream result set yields a zero-row table and no error; the caller must
// treat it as "no data for this page".
func (h *ItemHarvester) FetchPage(ctx context.Context, categoryID string, offset int) (*table.Table, error) {
	results, err := h.s.Client.SearchItems(ctx, h.s.Cfg.CountrySite, categoryID, offset)
	if err != nil {
		return nil, err
	}

	t := table.FromObjects(results)
	if t.Len() == 0 {
		return t, nil
	}

	t.SetConst("category", categoryID)
	t.DropEmptyColumns()
	if t.HasColumn("attributes") {
		extractBrand(t)
	}
	for _, col := range flattenColumns {
		t.FlattenColumn(col)
	}
	t.DropColumns(denyListColumns...)
	return t, nil
}

// extractBrand pulls the first attribute object whose id is "BRAND" into a
// brand column, nil when absent.
func extractBrand(t *table.Table) {
	for i := 0; i < t.Len(); i++ {
		attrs, _ := t.Value(i, "attributes").([]any)
		var brand any
		for _, attr := range attrs {
			obj, ok := attr.(map[string]any)
			if ok && obj["id"] == "BRAND" {
				brand = obj
				break
			}
		}
		t.Set(i, "brand", brand)
	}
}

// HarvestRange scans the full cross product of catalog categories and
// offsets init, init+step, ..., final, category-major, writing one
// data_items_{category}_{offset} file per non-empty page. The scan is
// strictly sequential; the first transport error aborts it. The offset cap
// is checked before any request is issued.
func (h *ItemHarvester) HarvestRange(ctx context.Context, initOffset, finalOffset int) (*models.HarvestResult, error) {
	if finalOffset > h.s.Cfg.MaxOffset {
		return nil, ErrOffsetCap{Requested: finalOffset, Max: h.s.Cfg.MaxOffset}
	}

	cats, err := h.catalog.Fetch(ctx, h.s.Cfg.CountrySite)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	result := &models.HarvestResult{StartTime: time.Now()}
	for _, cat := range cats {
		for offset := initOffset; offset <= finalOffset; offset += h.s.Cfg.OffsetStep {
			if err := ctx.Err(); err != nil {
				result.EndTime = time.Now()
				return result, err
			}

			page, err := h.FetchPage(ctx, cat.ID, offset)
			if err != nil {
				result.EndTime = time.Now()
				return result, fmt.Errorf("fetch page %s/%d: %w", cat.ID, offset, err)
			}
			result.PagesFetched++

			if page.Len() == 0 {
				result.PagesEmpty++
				continue
			}

			key := fmt.Sprintf("%s_%d", cat.ID, offset)
			if err := h.s.save(page, "data_items", key, "items"); err != nil {
				result.EndTime = time.Now()
				return result, err
			}
			result.FilesWritten++
			result.RowCount += page.Len()

			h.s.Log.Info("harvested page",
				slog.String("category", cat.ID),
				slog.Int("offset", offset),
				slog.Int("rows", page.Len()),
			)
		}
	}

	result.EndTime = time.Now()
	return result, nil
}
