package customers

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory customer store for demo/development mode.
type MemoryStore struct {
	customers   map[string]*Customer   // by ID
	employments map[string]*Employment // by customer ID
	order       []string               // insertion order of customer IDs
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory customer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:   make(map[string]*Customer),
		employments: make(map[string]*Employment),
	}
}

func (m *MemoryStore) Register(ctx context.Context, customer *Customer, employment *Employment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return ErrDuplicateEmail
		}
		if c.PANNumber == customer.PANNumber {
			return ErrDuplicatePAN
		}
		if c.AadhaarNumber == customer.AadhaarNumber {
			return ErrDuplicateAadhaar
		}
	}

	cc, ec := *customer, *employment
	m.customers[customer.ID] = &cc
	m.employments[customer.ID] = &ec
	m.order = append(m.order, customer.ID)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) GetEmployment(ctx context.Context, customerID string) (*Employment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.customers[customerID]; !ok {
		return nil, ErrCustomerNotFound
	}
	e, ok := m.employments[customerID]
	if !ok {
		return nil, ErrEmploymentNotFound
	}
	ep := *e
	return &ep, nil
}

func (m *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Customer, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.order))
	copy(ids, m.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return m.customers[ids[i]].CreatedAt.Before(m.customers[ids[j]].CreatedAt)
	})

	total := len(ids)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	result := make([]*Customer, 0, end-offset)
	for _, id := range ids[offset:end] {
		cp := *m.customers[id]
		result = append(result, &cp)
	}
	return result, total, nil
}
