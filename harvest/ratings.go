package harvest

import (
	"context"

	"github.com/icaro1518/ml-discounts/table"
)

// RatingHarvester fetches rating-level histograms for batches of item ids.
type RatingHarvester struct {
	s *Session
}

// NewRatingHarvester builds a rating harvester over the session.
func NewRatingHarvester(s *Session) *RatingHarvester {
	return &RatingHarvester{s: s}
}

// FetchOne retrieves the rating summary row for one item: the histogram
// columns, total_reviews as the sum of all histogram values, the
// rating_average, and the id tag. It does not persist; persistence happens
// once, at the batch level.
func (h *RatingHarvester) FetchOne(ctx context.Context, itemID string) (*table.Table, error) {
	review, err := h.s.Client.Reviews(ctx, itemID)
	if err != nil {
		return nil, err
	}

	row := make(map[string]any, len(review.RatingLevels))
	total := 0.0
	for level, count := range review.RatingLevels {
		row[level] = count
		total += count
	}

	t := table.FromObjects([]map[string]any{row})
	t.SetConst("total_reviews", total)
	t.SetConst("rating_average", review.RatingAverage)
	t.SetConst("id", itemID)
	return t, nil
}

// FetchBatch fetches every item over the bounded worker pool. Failed items
// are logged with the offending id and contribute zero rows (unless
// Config.FailFast). The single persistence point is the combined
// ratings_data file; with Config.PerItemFiles each row is written to its
// own ratings_data_{id} file instead.
func (h *RatingHarvester) FetchBatch(ctx context.Context, itemIDs []string) (*table.Table, error) {
	fetch := h.FetchOne
	if h.s.Cfg.PerItemFiles {
		fetch = func(ctx context.Context, itemID string) (*table.Table, error) {
			t, err := h.FetchOne(ctx, itemID)
			if err != nil {
				return nil, err
			}
			if err := h.s.save(t, "ratings_data", itemID, "ratings"); err != nil {
				return nil, err
			}
			return t, nil
		}
	}

	combined, _, err := h.s.runBatch(ctx, itemIDs, "ratings", fetch)
	if err != nil {
		return nil, err
	}
	if !h.s.Cfg.PerItemFiles {
		if err := h.s.save(combined, "ratings_data", "", "ratings"); err != nil {
			return nil, err
		}
	}
	return combined, nil
}
