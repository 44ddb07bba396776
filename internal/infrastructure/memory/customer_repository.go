package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/domain/entity"
)

// CustomerRepository directorio de clientes en memoria.
type CustomerRepository struct {
	store *Store
}

// NewCustomerRepository construye el repositorio.
func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	k := taxIDKey{companyID: customer.CompanyID, taxID: customer.TaxID}
	if _, ok := s.customerTaxs[k]; ok {
		return fmt.Errorf("%w: cliente %s", domain.ErrDuplicate, customer.TaxID)
	}
	s.customers[customer.ID] = cloneCustomer(customer)
	s.customerTaxs[k] = customer.ID
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	return cloneCustomer(c), nil
}

func (r *CustomerRepository) GetByCompanyAndTaxID(ctx context.Context, companyID, taxID string) (*entity.Customer, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.customerTaxs[taxIDKey{companyID: companyID, taxID: taxID}]
	if !ok {
		return nil, nil
	}
	return cloneCustomer(s.customers[id]), nil
}

func (r *CustomerRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Customer, error) {
	s := r.store
	s.mu.Lock()
	list := make([]*entity.Customer, 0)
	for _, c := range s.customers {
		if c.CompanyID == companyID {
			list = append(list, cloneCustomer(c))
		}
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if offset >= len(list) {
		return []*entity.Customer{}, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
