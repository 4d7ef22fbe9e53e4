package masterdata_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafetyDady/smart-erp-backend/internal/application/masterdata"
	"github.com/SafetyDady/smart-erp-backend/internal/domain"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/memory"
)

const sample = `# kind,code,name,active|status
cost_center, cc-100, Maintenance, true
cost_center,CC-OLD,Retired,false
cost_element,CE-200,Spare parts,true

work_order,wo-0001,Pump overhaul,open,CC-100,CE-200
work_order,WO-0002,Closed job,CLOSED
`

func TestParseAndApply(t *testing.T) {
	set, err := masterdata.Parse(strings.NewReader(sample), false)
	require.NoError(t, err)
	require.Len(t, set.CostCenters, 2)
	assert.Equal(t, "CC-100", set.CostCenters[0].Code)
	assert.False(t, set.CostCenters[1].Active)
	require.Len(t, set.WorkOrders, 2)
	assert.Equal(t, "WO-0001", set.WorkOrders[0].Number)
	assert.Nil(t, set.WorkOrders[1].CostCenter)

	store := memory.NewStore()
	ctx := context.Background()
	sum, err := masterdata.Apply(ctx, store, set)
	require.NoError(t, err)
	assert.Equal(t, masterdata.Summary{CostCenters: 2, CostElements: 1, WorkOrders: 2}, sum)

	ok, _ := store.ValidateCostCenter(ctx, "CC-100")
	assert.True(t, ok)
	ok, _ = store.ValidateCostCenter(ctx, "CC-OLD")
	assert.False(t, ok)

	wo, err := store.GetWorkOrder(ctx, set.WorkOrders[0].ID)
	require.NoError(t, err)
	require.NotNil(t, wo)
	assert.True(t, wo.IsOpen())
	assert.Equal(t, "CE-200", *wo.CostElement)

	_, err = masterdata.Apply(ctx, store, &masterdata.Set{WorkOrders: set.WorkOrders[:1]})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   "warehouse,W1,Main,true\n",
		"bad flag":       "cost_center,CC-1,X,maybe\n",
		"missing column": "cost_element,CE-1,X\n",
		"bad status":     "work_order,WO-9,X,DONE\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := masterdata.Parse(strings.NewReader(in), false)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestLoadFileLatin1(t *testing.T) {
	// "Mantenimiento eléctrico" in ISO-8859-1
	raw := append([]byte("cost_center,CC-7,Mantenimiento el"), 0xE9, 'c', 't', 'r', 'i', 'c', 'o', ',', 't', 'r', 'u', 'e', '\n')
	path := filepath.Join(t.TempDir(), "master.csv")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	set, err := masterdata.Parse(mustOpen(t, path), true)
	require.NoError(t, err)
	assert.Equal(t, "Mantenimiento eléctrico", set.CostCenters[0].Name)

	store := memory.NewStore()
	sum, err := masterdata.LoadFile(context.Background(), store, path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CostCenters)

	_, err = masterdata.LoadFile(context.Background(), store, filepath.Join(t.TempDir(), "missing.csv"), false)
	assert.Error(t, err)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
