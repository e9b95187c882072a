package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/chemstock/internal/adapters/memory"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

func TestInventory_CreateUpdateDelete(t *testing.T) {
	uc := NewInventoryUseCase(memory.NewStore(), nil)
	ctx := context.Background()

	created, err := uc.Create(ctx, entities.Chemical{Name: "  Acetone ", Quantity: 2.5, Unit: "L", CASNumber: "67-64-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acetone", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	updated, err := uc.Update(ctx, created.ID, entities.Chemical{Name: "Acetone", Quantity: 1, Unit: "L", Location: "Cabinet B"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Cabinet B", updated.Location)

	_, err = uc.Update(ctx, "missing", entities.Chemical{Name: "X", Unit: "g"})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	catalog, err := uc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entities.CatalogEntry{{ID: created.ID, Name: "Acetone"}}, catalog)

	require.NoError(t, uc.Delete(ctx, created.ID))
	_, err = uc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestInventory_Validation(t *testing.T) {
	uc := NewInventoryUseCase(memory.NewStore(), nil)
	ctx := context.Background()

	for name, c := range map[string]entities.Chemical{
		"no name":           {Unit: "g", Quantity: 1},
		"no unit":           {Name: "Acetone", Quantity: 1},
		"negative quantity": {Name: "Acetone", Unit: "g", Quantity: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := uc.Create(ctx, c)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}
}

func TestInventory_SearchIgnoresCaseAndAccents(t *testing.T) {
	uc := NewInventoryUseCase(memory.NewStore(), nil)
	ctx := context.Background()

	for _, c := range []entities.Chemical{
		{Name: "Éther diéthylique", Formula: "C4H10O", Unit: "L"},
		{Name: "Sodium Chloride", Formula: "NaCl", CASNumber: "7647-14-5", Unit: "g"},
		{Name: "Ethanol", Formula: "C2H5OH", Unit: "L"},
	} {
		_, err := uc.Create(ctx, c)
		require.NoError(t, err)
	}

	names := func(q string) []string {
		res, err := uc.Search(ctx, q)
		require.NoError(t, err)
		var out []string
		for _, c := range res {
			out = append(out, c.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Éther diéthylique"}, names("ether DIETHYL"))
	assert.Equal(t, []string{"Sodium Chloride"}, names("nacl"))
	assert.Equal(t, []string{"Sodium Chloride"}, names("7647"))
	assert.Equal(t, []string{"Éther diéthylique", "Ethanol"}, names("eth"))
	assert.Len(t, names(""), 3)
	assert.Empty(t, names("benzene"))
}

func TestInventory_Expiring(t *testing.T) {
	uc := NewInventoryUseCase(memory.NewStore(), nil)
	ctx := context.Background()

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(90 * 24 * time.Hour)
	_, _ = uc.Create(ctx, entities.Chemical{Name: "Peroxide", Unit: "mL", ExpiresAt: &soon})
	_, _ = uc.Create(ctx, entities.Chemical{Name: "Salt", Unit: "g", ExpiresAt: &later})
	_, _ = uc.Create(ctx, entities.Chemical{Name: "Water", Unit: "L"})

	res, err := uc.Expiring(ctx, time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Peroxide", res[0].Name)
}
