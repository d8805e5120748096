package crudgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		"canWeights", "customers", "inventory", "orderItems",
		"orderStatus", "orders", "shippingCarriers", "vendors",
	}, r.Tables())

	cols, ok := r.Dropdown("customer")
	require.True(t, ok)
	assert.Equal(t, DropdownColumn{Alias: "value", Column: "id"}, cols[0])
	assert.Equal(t, "name as 'text'", cols[1].Expr())

	_, ok = r.Dropdown("planet")
	assert.False(t, ok)

	p, ok := r.Page("orders")
	require.True(t, ok)
	assert.Equal(t, "orderItems", p.Subgrid)
	assert.Equal(t, "orderId", p.ParentKey)

	p, ok = r.Page("data")
	require.True(t, ok)
	assert.True(t, p.ReadOnly)
	assert.Equal(t, "canWeights", p.Table)
}

func TestDropdownTable(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "vendors", r.DropdownTable("vendor"))
	assert.Equal(t, "customers", r.DropdownTable("customer"))
	assert.Equal(t, "shippingCarriers", r.DropdownTable("shippingCarrier"))
	assert.Equal(t, "inventory", r.DropdownTable("inventory"))
	assert.Equal(t, "orderStatus", r.DropdownTable("orderStatus"))
}

func TestNewRegistryDefaultsParentKey(t *testing.T) {
	cfg := RegistryConfig{
		Tables: []string{"orders", "orderItems"},
		Pages:  []Page{{Name: "orders", Title: "Orders", Table: "orders", Subgrid: "orderItems"}},
	}
	r, err := NewRegistry(cfg)
	require.NoError(t, err)

	p, _ := r.Page("orders")
	assert.Equal(t, "orderId", p.ParentKey)
	assert.Empty(t, cfg.Pages[0].ParentKey, "caller's config must not change")
}

func TestNewRegistryRejects(t *testing.T) {
	cases := map[string]RegistryConfig{
		"bad table": {Tables: []string{"drop table"}},
		"page table": {
			Tables: []string{"orders"},
			Pages:  []Page{{Name: "x", Title: "X", Table: "secrets"}},
		},
		"subgrid table": {
			Tables: []string{"orders"},
			Pages:  []Page{{Name: "x", Title: "X", Table: "orders", Subgrid: "secrets"}},
		},
		"no text": {
			Tables:    []string{"vendors"},
			Dropdowns: map[string][]DropdownColumn{"vendor": {{Alias: "value", Column: "id"}, {Alias: "label", Column: "name"}}},
		},
		"bad column": {
			Tables:    []string{"vendors"},
			Dropdowns: map[string][]DropdownColumn{"vendor": {{Alias: "value", Column: "id"}, {Alias: "text", Column: "name;"}}},
		},
	}
	for name, cfg := range cases {
		_, err := NewRegistry(cfg)
		assert.Error(t, err, name)
	}
}

func TestLoadRegistry(t *testing.T) {
	t.Setenv("EXTRA_TABLE", "suppliers")

	r, err := LoadRegistry([]byte(`
tables: [vendors, "${EXTRA_TABLE}"]
pluralExempt: [suppliers]
dropdowns:
  supplier:
    - { alias: value, column: id }
    - { alias: text, column: name }
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"suppliers", "vendors"}, r.Tables())
	assert.Equal(t, "suppliers", r.DropdownTable("suppliers"))
	assert.Equal(t, "suppliers", r.DropdownTable("supplier"))
}

func TestValidateRegistry(t *testing.T) {
	problems, err := ValidateRegistry(defaultRegistry)
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = ValidateRegistry([]byte(`
tables: []
dropdowns:
  vendor:
    - { alias: value }
pages:
  - { name: x, table: "orders; --" }
extra: true
`))
	require.NoError(t, err)
	assert.NotEmpty(t, problems)

	_, err = LoadRegistry([]byte("tables: [orders, orders]"))
	assert.Error(t, err)

	_, err = ValidateRegistry([]byte("tables: [\n"))
	assert.Error(t, err)
}
