/*
reports.go - Read-side aggregations over the ledger

PURPOSE:
  Everything here is a projection of committed state: no mutation, no
  gating logic. Reads are lock-free and may observe slightly stale data
  under concurrent writes; calling the same report twice with no
  intervening write returns identical results.
*/
package ledger

import "context"

// Reports is the read-oriented lookup facade.
type Reports struct {
	store Store
}

// NewReports creates the facade over any store implementation.
func NewReports(store Store) *Reports {
	return &Reports{store: store}
}

// ListAvailable returns the catalog entries whose cached status is
// Available, ordered by id.
func (r *Reports) ListAvailable(ctx context.Context) ([]Equipment, error) {
	return r.listByStatus(ctx, StatusAvailable)
}

// ListLoaned returns the catalog entries whose cached status is Loaned,
// ordered by id.
func (r *Reports) ListLoaned(ctx context.Context) ([]Equipment, error) {
	return r.listByStatus(ctx, StatusLoaned)
}

func (r *Reports) listByStatus(ctx context.Context, status Status) ([]Equipment, error) {
	all, err := r.store.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Equipment, 0, len(all))
	for _, eq := range all {
		if eq.Status == status {
			out = append(out, eq)
		}
	}
	return out, nil
}

// ActiveLoans lists every loaned item with the holder fields of its most
// recent Issue transaction. An item whose cached status says Loaned but
// that has no Issue entry is omitted rather than reported as an error.
func (r *Reports) ActiveLoans(ctx context.Context) ([]ActiveLoan, error) {
	loaned, err := r.ListLoaned(ctx)
	if err != nil {
		return nil, err
	}

	loans := make([]ActiveLoan, 0, len(loaned))
	for _, eq := range loaned {
		issue, err := r.store.LastIssue(ctx, eq.ID)
		if err != nil {
			return nil, err
		}
		if issue == nil {
			// Status cache disagrees with the ledger. Skip defensively.
			continue
		}
		loans = append(loans, ActiveLoan{
			EquipmentID:   eq.ID,
			EquipmentName: eq.Name,
			HolderName:    issue.EmployeeName,
			HolderEmail:   issue.EmployeeEmail,
			HolderArea:    issue.EmployeeArea,
			LoanedSince:   issue.Timestamp,
		})
	}
	return loans, nil
}

// DistinctPriorHolders returns everyone who has ever received equipment,
// deduplicated by name (first record wins), ordered by name.
func (r *Reports) DistinctPriorHolders(ctx context.Context) ([]Holder, error) {
	holders, err := r.store.DistinctHolders(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(holders))
	out := make([]Holder, 0, len(holders))
	for _, h := range holders {
		if seen[h.Name] {
			continue
		}
		seen[h.Name] = true
		out = append(out, h)
	}
	return out, nil
}

// History returns the full transaction log, newest first, with equipment
// display names joined in.
func (r *Reports) History(ctx context.Context) ([]LedgerEntry, error) {
	return r.store.ListTransactions(ctx)
}

// SummaryCounts returns the headline totals for the dashboard.
func (r *Reports) SummaryCounts(ctx context.Context) (Summary, error) {
	return r.store.Counts(ctx)
}
