package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Invorya-api/internal/application/billing"
	"github.com/jhoicas/Invorya-api/internal/application/dto"
	"github.com/jhoicas/Invorya-api/internal/domain"
	"github.com/jhoicas/Invorya-api/internal/infrastructure/memory"
)

func TestCustomerUseCase_CreateYList(t *testing.T) {
	uc := billing.NewCustomerUseCase(memory.NewCustomerRepository(memory.NewStore()))
	ctx := context.Background()

	created, err := uc.Create(ctx, companyID, dto.CreateCustomerRequest{Name: " Beta Ltda ", TaxID: "800111222"})
	require.NoError(t, err)
	assert.Equal(t, "Beta Ltda", created.Name)
	_, err = uc.Create(ctx, companyID, dto.CreateCustomerRequest{Name: "Alfa", TaxID: "800333444"})
	require.NoError(t, err)

	// El mismo NIT en la misma empresa está duplicado; en otra empresa no.
	_, err = uc.Create(ctx, companyID, dto.CreateCustomerRequest{Name: "Otra", TaxID: "800111222"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = uc.Create(ctx, "company-2", dto.CreateCustomerRequest{Name: "Otra", TaxID: "800111222"})
	assert.NoError(t, err)

	list, err := uc.List(ctx, companyID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alfa", list[0].Name)
}

func TestCustomerUseCase_Validaciones(t *testing.T) {
	uc := billing.NewCustomerUseCase(memory.NewCustomerRepository(memory.NewStore()))
	_, err := uc.Create(context.Background(), companyID, dto.CreateCustomerRequest{Name: "", TaxID: "1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
