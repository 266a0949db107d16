package database

import (
	"context"
	"testing"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertVehicleByCode(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	v := &models.Vehicle{Code: "ESC-01", Description: "Escavadeira CAT 320", Category: "Escavadeira"}
	id, err := store.UpsertVehicleByCode(ctx, v)
	require.NoError(t, err)
	assert.NotZero(t, id)

	// Mesmo código: atualiza em vez de duplicar, id estável.
	v2 := &models.Vehicle{Code: "ESC-01", Description: "Escavadeira CAT 320D", Company: "Campos e Silva"}
	id2, err := store.UpsertVehicleByCode(ctx, v2)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := store.VehicleByCode(ctx, "ESC-01")
	require.NoError(t, err)
	assert.Equal(t, "Escavadeira CAT 320D", got.Description)
	assert.Equal(t, "Campos e Silva", got.Company)

	vehicles, err := store.AllVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
}

func TestVehicleByCodeNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.VehicleByCode(context.Background(), "NADA-99")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAllVehiclesOrderedByCode(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for _, code := range []string{"TRA-03", "CAM-07", "ESC-01"} {
		_, err := store.UpsertVehicleByCode(ctx, &models.Vehicle{Code: code})
		require.NoError(t, err)
	}

	vehicles, err := store.AllVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 3)
	assert.Equal(t, "CAM-07", vehicles[0].Code)
	assert.Equal(t, "ESC-01", vehicles[1].Code)
	assert.Equal(t, "TRA-03", vehicles[2].Code)
}
