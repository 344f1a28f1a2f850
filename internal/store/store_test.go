package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
	"github.com/MaStr/pv-bat-simulator/internal/lp"
	"github.com/MaStr/pv-bat-simulator/internal/model"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func flatTrace() *dispatch.Trace {
	in := dispatch.Inputs{
		Consumption: model.Constant(1000),
		Production:  model.Constant(0),
		Battery:     model.BatteryParams{CapacityWh: 5000, MaxChargeW: 2000, MaxDischargeW: 2000},
	}
	return dispatch.New().RunGreedy(dispatch.ModelFlatPrice, in, dispatch.FlatPrice(0.30))
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	tr := flatTrace()
	request := map[string]any{"modell": 1, "strompreis": 0.30}

	id, err := repo.Save(ctx, request, tr)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, dispatch.ModelFlatPrice, got.Trace.Model)
	require.Len(t, got.Trace.Steps, model.Hours)
	assert.Equal(t, 7.2, got.Trace.TotalCost())
	assert.Equal(t, lp.NotSolved, got.Trace.Status)

	var req map[string]any
	require.NoError(t, json.Unmarshal(got.Request, &req))
	assert.Equal(t, 0.30, req["strompreis"])
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListStatus(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, nil, flatTrace())
	require.NoError(t, err)

	infeasible := &dispatch.Trace{Model: dispatch.ModelOptimizer, CapacityWh: 1000, Status: lp.Infeasible}
	_, err = repo.Save(ctx, nil, infeasible)
	require.NoError(t, err)

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byModel := map[int]Summary{}
	for _, s := range list {
		byModel[s.Model] = s
	}
	assert.Equal(t, 7.2, byModel[1].TotalCost)
	assert.Equal(t, 24.0, byModel[1].TotalGridKWh)
	assert.Empty(t, byModel[1].Status)
	assert.Equal(t, "Infeasible", byModel[3].Status)
	assert.Zero(t, byModel[3].TotalCost)

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
