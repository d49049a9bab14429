package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportengine/internal/metadata"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	names := make([]string, 0)
	for _, e := range reg.List() {
		names = append(names, e.Name)
		assert.Equal(t, ScopeColumn, e.ScopeColumn)
		assert.NotEmpty(t, e.TableName)
	}
	assert.Equal(t, []string{"customers", "invoices", "payments", "work_orders"}, names)
}

func TestInvoiceFields(t *testing.T) {
	reg := MustRegistry()

	amount, ok := reg.Field("invoices", "amount")
	require.True(t, ok)
	assert.Equal(t, metadata.TypeNumber, amount.Type)
	assert.True(t, amount.Aggregatable)

	status, ok := reg.Field("invoices", "status")
	require.True(t, ok)
	assert.Equal(t, metadata.TypeEnum, status.Type)
	assert.True(t, status.HasOption("paid"))

	due, ok := reg.Field("invoices", "due_at")
	require.True(t, ok)
	assert.Equal(t, metadata.TypeDate, due.Type)
	assert.Equal(t, "Due Date", due.Label)

	recurring, ok := reg.Field("invoices", "recurring")
	require.True(t, ok)
	assert.Equal(t, "is_recurring", recurring.Column)

	_, ok = reg.Field("invoices", "organization_id")
	assert.False(t, ok, "scope column is not reportable")
}
