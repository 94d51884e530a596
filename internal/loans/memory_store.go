package loans

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory loan store for demo/development mode.
type MemoryStore struct {
	applications map[string]*Application
	loans        map[string]*Loan
	repayments   []*Repayment
	collateral   []*Collateral
	npas         []*NPARecord
	mu           sync.RWMutex
}

// NewMemoryStore creates a new in-memory loan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		applications: make(map[string]*Application),
		loans:        make(map[string]*Loan),
	}
}

func (m *MemoryStore) CreateApplication(ctx context.Context, app *Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *app
	m.applications[app.ID] = &cp
	return nil
}

func (m *MemoryStore) GetApplication(ctx context.Context, id string) (*Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.applications[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (m *MemoryStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Application
	for _, app := range m.applications {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && app.CustomerID != filter.CustomerID {
			continue
		}
		matched = append(matched, app)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AppliedAt.After(matched[j].AppliedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*Application, 0, end-filter.Offset)
	for _, app := range matched[filter.Offset:end] {
		cp := *app
		page = append(page, &cp)
	}
	return page, total, nil
}

func (m *MemoryStore) CreateLoan(ctx context.Context, loan *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *loan
	m.loans[loan.ID] = &cp
	return nil
}

func (m *MemoryStore) GetLoan(ctx context.Context, id string) (*Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loan, ok := m.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	cp := *loan
	return &cp, nil
}

func (m *MemoryStore) UpdateLoan(ctx context.Context, loan *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; !ok {
		return ErrLoanNotFound
	}
	cp := *loan
	m.loans[loan.ID] = &cp
	return nil
}

func (m *MemoryStore) ListLoans(ctx context.Context, status string, limit int) ([]*Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Loan
	for _, loan := range m.loans {
		if status != "" && loan.Status != status {
			continue
		}
		cp := *loan
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DisbursedAt.After(result[j].DisbursedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) RecordRepayment(ctx context.Context, r *Repayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.repayments = append(m.repayments, &cp)
	return nil
}

func (m *MemoryStore) AddCollateral(ctx context.Context, c *Collateral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.collateral = append(m.collateral, &cp)
	return nil
}

func (m *MemoryStore) TrackNPA(ctx context.Context, rec *NPARecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.npas = append(m.npas, &cp)
	return nil
}

func (m *MemoryStore) LoanStats(ctx context.Context) (LoanStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats LoanStats
	var amountSum float64
	for _, loan := range m.loans {
		stats.TotalLoans++
		amountSum += loan.Amount
		stats.TotalDisbursed += loan.DisbursedAmount
		switch loan.Status {
		case LoanActive:
			stats.ActiveLoans++
			stats.TotalOutstanding += loan.OutstandingBalance
		case LoanClosed:
			stats.ClosedLoans++
		case LoanDefaulted:
			stats.DefaultedLoans++
		}
	}
	if stats.TotalLoans > 0 {
		stats.AverageLoanSize = amountSum / float64(stats.TotalLoans)
	}
	return stats, nil
}

func (m *MemoryStore) ApplicationStats(ctx context.Context) (ApplicationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats ApplicationStats
	for _, app := range m.applications {
		stats.Total++
		switch app.Status {
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		case StatusPending:
			stats.Pending++
		}
	}
	return stats, nil
}

func (m *MemoryStore) NPAStats(ctx context.Context) (NPABreakdown, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	breakdown := NPABreakdown{ByClass: make(map[string]NPABucket)}
	for _, rec := range m.npas {
		breakdown.TotalLoans++
		breakdown.TotalAmount += rec.OverdueAmount
		bucket := breakdown.ByClass[rec.Classification]
		bucket.Count++
		bucket.Amount += rec.OverdueAmount
		breakdown.ByClass[rec.Classification] = bucket
	}
	return breakdown, nil
}

func (m *MemoryStore) RepaymentStats(ctx context.Context) (RepaymentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats RepaymentStats
	var amountSum float64
	for _, r := range m.repayments {
		stats.Total++
		amountSum += r.AmountPaid
		stats.TotalLateFees += r.LateFee
		if r.Late() {
			stats.Late++
		}
	}
	if stats.Total > 0 {
		stats.AverageAmount = amountSum / float64(stats.Total)
	}
	return stats, nil
}

func (m *MemoryStore) CollateralStats(ctx context.Context) (CollateralStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := CollateralStats{ByType: make(map[string]CollateralBucket)}
	for _, c := range m.collateral {
		stats.TotalValue += c.Value
		bucket := stats.ByType[c.Type]
		bucket.Count++
		bucket.TotalValue += c.Value
		stats.ByType[c.Type] = bucket

		if loan, ok := m.loans[c.LoanID]; ok {
			stats.Pairs = append(stats.Pairs, CollateralPair{
				LoanAmount:      loan.Amount,
				CollateralValue: c.Value,
			})
		}
	}
	return stats, nil
}

func (m *MemoryStore) Distribution(ctx context.Context) (Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dist := Distribution{
		ByPurpose: make(map[string]PurposeBucket),
		ByStatus:  make(map[string]int),
	}
	for _, app := range m.applications {
		bucket := dist.ByPurpose[app.Purpose]
		bucket.Count++
		bucket.TotalAmount += app.Amount
		dist.ByPurpose[app.Purpose] = bucket
	}
	for _, loan := range m.loans {
		dist.ByStatus[loan.Status]++
	}
	return dist, nil
}
