package harvest

import (
	"context"

	"github.com/icaro1518/ml-discounts/table"
)

// SellerHarvester fetches reputation records for batches of seller ids.
type SellerHarvester struct {
	s *Session
}

// NewSellerHarvester builds a seller harvester over the session.
func NewSellerHarvester(s *Session) *SellerHarvester {
	return &SellerHarvester{s: s}
}

// FetchOne retrieves one seller's reputation row: the transactions
// sub-object is split into transactions_period and transactions_total, the
// nested field discarded, and the row tagged with seller_id and user_type.
// Upstream failures propagate to the caller.
func (h *SellerHarvester) FetchOne(ctx context.Context, sellerID string) (*table.Table, error) {
	profile, err := h.s.Client.User(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	rep := make(map[string]any, len(profile.SellerReputation)+1)
	for k, v := range profile.SellerReputation {
		rep[k] = v
	}
	if tx, ok := rep["transactions"].(map[string]any); ok {
		rep["transactions_period"] = tx["period"]
		rep["transactions_total"] = tx["total"]
		delete(rep, "transactions")
	}

	t := table.FromObjects([]map[string]any{rep})
	t.SetConst("seller_id", sellerID)
	t.SetConst("user_type", profile.UserType)
	return t, nil
}

// FetchBatch fetches every seller over the bounded worker pool, joins the
// results in completion order, and writes the combined table to the single
// seller_data file. Failure policy follows Config.FailFast.
func (h *SellerHarvester) FetchBatch(ctx context.Context, sellerIDs []string) (*table.Table, error) {
	combined, _, err := h.s.runBatch(ctx, sellerIDs, "sellers", h.FetchOne)
	if err != nil {
		return nil, err
	}
	if err := h.s.save(combined, "seller_data", "", "sellers"); err != nil {
		return nil, err
	}
	return combined, nil
}
