package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gnemet/crudgrid"
)

func TestFormatCell(t *testing.T) {
	vendor := crudgrid.Field{
		Name: "vendorId",
		Type: crudgrid.FieldDropdown,
		Items: []crudgrid.Item{
			{"value": int64(1), "text": "Acme"},
			{"value": int64(2), "text": "Globex"},
		},
	}
	row := crudgrid.Row{
		"id":        int64(7),
		"vendorId":  int64(2),
		"received":  "2024-03-05",
		"recorded":  "2024-03-05 10:30:00",
		"quantity":  int64(12),
		"unitPrice": 2.5,
		"notes":     nil,
	}

	assert.Equal(t, "", FormatCell(crudgrid.Field{Name: "id", Type: crudgrid.FieldNumber}, row))
	assert.Equal(t, "Globex", FormatCell(vendor, row))
	assert.Equal(t, "03/05/2024", FormatCell(crudgrid.Field{Name: "received", Type: crudgrid.FieldDate}, row))
	assert.Equal(t, "2024-03-05 10:30:00", FormatCell(crudgrid.Field{Name: "recorded", Type: crudgrid.FieldDatetime}, row))
	assert.Equal(t, "12", FormatCell(crudgrid.Field{Name: "quantity", Type: crudgrid.FieldNumber}, row))
	assert.Equal(t, "2.5", FormatCell(crudgrid.Field{Name: "unitPrice", Type: crudgrid.FieldNumber}, row))
	assert.Equal(t, "", FormatCell(crudgrid.Field{Name: "notes", Type: crudgrid.FieldText}, row))
	assert.Equal(t, "", FormatCell(crudgrid.Field{Name: "missing"}, row))
}

func TestFormatCellUnmatchedDropdown(t *testing.T) {
	f := crudgrid.Field{Name: "vendorId", Type: crudgrid.FieldDropdown, Items: []crudgrid.Item{}}
	assert.Equal(t, "9", FormatCell(f, crudgrid.Row{"vendorId": int64(9)}))

	// values arriving as text still match numeric item values
	f.Items = []crudgrid.Item{{"value": int64(9), "text": "Initech"}}
	assert.Equal(t, "Initech", FormatCell(f, crudgrid.Row{"vendorId": "9"}))
}
