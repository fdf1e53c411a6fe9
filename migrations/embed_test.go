package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOrdersMigrations(t *testing.T) {
	list, err := List()
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "0001", list[0].Version)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}
}

func TestInitialSchemaCreatesTables(t *testing.T) {
	list, err := List()
	require.NoError(t, err)
	schema := list[0].SQL
	for _, table := range []string{
		"users", "user_sessions", "accounts", "account_contacts", "customers", "customer_contacts",
		"categories", "products", "quotations", "quotation_items", "quotation_media", "approvals",
		"audit_logs", "idempotency_keys", "reference_sequences",
	} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE "+table+" ("), table)
	}
	assert.Contains(t, schema, "CREATE SEQUENCE customer_code_seq")
}
