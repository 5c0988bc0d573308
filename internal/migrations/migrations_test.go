package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsCarryUniqueConstraints(t *testing.T) {
	files, err := fs.Glob(embedded, "sql/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(embedded, files[0])
	require.NoError(t, err)
	schema := string(raw)

	for _, constraint := range []string{
		"invoices_subscription_period_key",
		"nfse_documents_invoice_key",
		"nfse_documents_idempotency_key_key",
		"gateway_events_idempotency_key_key",
		"tenant_feature_overrides_active_idx",
		"subscriptions_one_live_per_tenant_idx",
		"payments_one_paid_per_invoice_idx",
		"plan_versions_one_active_idx",
		"dunning_policies_one_default_idx",
	} {
		assert.True(t, strings.Contains(schema, constraint), constraint)
	}
	assert.Contains(t, schema, "-- +goose Up")
	assert.Contains(t, schema, "-- +goose Down")
}
