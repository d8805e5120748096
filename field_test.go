package crudgrid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCamelCaseToLabel(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"orders":          "Order",
		"companies":       "Company",
		"vendorId":        "Vendor Id",
		"contactName":     "Contact Name",
		"inventoryNumber": "Inventory Number",
		"name":            "Name",
		"Name":            "Name",
		"shippingCarrier": "Shipping Carrier",
		"orderItems":      "Order Item",
		// only the last capital gets a space
		"estimatedShippingCost": "EstimatedShipping Cost",
		// de-pluralisation does not know words that end in s
		"orderStatus": "Order Statu",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelCaseToLabel(in), in)
	}
}

func TestClassifyColumn(t *testing.T) {
	cases := []struct {
		col  Column
		want Field
	}{
		{
			Column{Name: "unitPrice", Type: "decimal(10,2)", Nullable: true},
			Field{Name: "unitPrice", DisplayText: "Unit Price", Type: FieldNumber, Length: 10, Decimals: 2},
		},
		{
			Column{Name: "name", Type: "varchar(255)"},
			Field{Name: "name", DisplayText: "Name", Type: FieldText, Length: 255, Required: true},
		},
		{
			Column{Name: "weight", Type: "double 8", Nullable: true},
			Field{Name: "weight", DisplayText: "Weight", Type: FieldNumber, Length: 8},
		},
		{
			Column{Name: "quantity", Type: "int unsigned"},
			Field{Name: "quantity", DisplayText: "Quantity", Type: FieldNumber, Required: true},
		},
		{
			Column{Name: "active", Type: "bit(1)", Nullable: true},
			Field{Name: "active", DisplayText: "Active", Type: FieldBoolean, Length: 1},
		},
		{
			Column{Name: "orderDate", Type: "date", Nullable: true},
			Field{Name: "orderDate", DisplayText: "Order Date", Type: FieldDate},
		},
		{
			Column{Name: "recorded", Type: "TIMESTAMP", Nullable: true},
			Field{Name: "recorded", DisplayText: "Recorded", Type: FieldDatetime},
		},
		{
			Column{Name: "notes", Type: "character varying(1000)", Nullable: true},
			Field{Name: "notes", DisplayText: "Note", Type: FieldText, Length: 1000},
		},
		{
			Column{Name: "id", Type: "INTEGER"},
			Field{Name: "id", DisplayText: "Id", Type: FieldNumber, Required: true},
		},
		{
			Column{Name: "vendorId", Type: "int(11)", Nullable: true},
			Field{Name: "vendorId", DisplayText: "Vendor", Type: FieldDropdown, Length: 11, Items: []Item{}},
		},
		{
			Column{Name: "payload", Type: "json", Nullable: true},
			Field{Name: "payload", DisplayText: "Payload"},
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyColumn(tc.col), tc.col.Name)
	}
}

func TestFieldInputType(t *testing.T) {
	f := ClassifyColumn(Column{Name: "payload", Type: "blob"})
	assert.Equal(t, FieldType(""), f.Type)
	assert.Equal(t, FieldText, f.InputType())

	f = ClassifyColumn(Column{Name: "quantity", Type: "int"})
	assert.Equal(t, FieldNumber, f.InputType())
}

func TestIsForeignKey(t *testing.T) {
	assert.True(t, IsForeignKey("customerId"))
	assert.False(t, IsForeignKey("Id"))
	assert.False(t, IsForeignKey("id"))
	assert.False(t, IsForeignKey("customerID"))
}

func TestSplitType(t *testing.T) {
	base, args, q := splitType("decimal(10,2) unsigned")
	assert.Equal(t, "decimal", base)
	assert.Equal(t, []string{"10", "2"}, args)
	assert.Empty(t, q)

	base, args, q = splitType("double unsigned")
	assert.Equal(t, "double", base)
	assert.Nil(t, args)
	assert.Equal(t, "unsigned", q)

	base, _, _ = splitType("  Text ")
	assert.Equal(t, "text", base)
}

func TestFieldMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Field{Name: "vendorId", DisplayText: "Vendor", Type: FieldDropdown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"vendorId","displayText":"Vendor","type":"dropdown","required":false,"items":[]}`, string(b))

	b, err = json.Marshal(Field{Name: "name", DisplayText: "Name", Type: FieldText, Length: 100, Required: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"name","displayText":"Name","type":"text","length":100,"required":true}`, string(b))

	b, err = json.Marshal(Field{Name: "payload", DisplayText: "Payload"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"payload","displayText":"Payload","required":false}`, string(b))
}

func TestItem(t *testing.T) {
	it := Item{"value": int64(3), "text": "Acme", "data-email": "a@b.c"}
	assert.Equal(t, int64(3), it.Value())
	assert.Equal(t, "Acme", it.Text())
	assert.Equal(t, "", Item{"value": 1}.Text())
}
