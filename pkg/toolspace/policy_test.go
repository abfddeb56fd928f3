package toolspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdavis/generous/pkg/models"
)

func TestMatchToolPattern(t *testing.T) {
	tests := []struct {
		toolID  string
		pattern string
		want    bool
	}{
		{"anything", "*", true},
		{"weather", "weather", true},
		{"weather", "forecast", false},
		{"@stripe/createPayment", "@stripe/*", true},
		{"@stripe", "@stripe/*", true},
		{"weather", "@stripe/*", false},
		{"@stripe/refunds/create", "@stripe/*", true},
		{"acme/search", "*/search", true},
		{"search", "*/search", true},
		{"acme/searcher", "*/search", false},
		{"@crm/contacts/delete", "@crm/*/delete", true},
		{"@crm/delete", "@crm/*", true},
		{"@billing/contacts/delete", "@crm/*/delete", false},
		{"a/b/c", "*/b/*", false}, // multiple wildcard segments unsupported
	}

	for _, tt := range tests {
		got := MatchToolPattern(tt.toolID, tt.pattern)
		assert.Equal(t, tt.want, got, "MatchToolPattern(%q, %q)", tt.toolID, tt.pattern)
	}
}

func TestIsToolAllowed_EmptyListAllowsAll(t *testing.T) {
	assert.True(t, IsToolAllowed("@stripe/createPayment", nil))
	assert.True(t, IsToolAllowed("weather", []string{}))
}

func TestIsToolAllowed_RequiresAMatch(t *testing.T) {
	patterns := []string{"weather", "@stripe/*"}

	assert.True(t, IsToolAllowed("weather", patterns))
	assert.True(t, IsToolAllowed("@stripe/createPayment", patterns))
	assert.False(t, IsToolAllowed("@mailer/send", patterns))
}

func TestValidateToolExecution_PatternDenies(t *testing.T) {
	config := &models.ToolspaceConfig{
		Name:        "support",
		Tools:       []string{"get*"},
		Permissions: &models.ToolspacePermissions{},
	}

	err := ValidateToolExecution("deleteUser", config, models.OperationTypeRead)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleteUser")
}

func TestValidateToolExecution_PermissionDenies(t *testing.T) {
	denied := false
	config := &models.ToolspaceConfig{
		Name:        "support",
		Permissions: &models.ToolspacePermissions{AllowDelete: &denied},
	}

	require.NoError(t, ValidateToolExecution("archive", config, models.OperationTypeRead))

	err := ValidateToolExecution("archive", config, models.OperationTypeDelete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete")
}

func TestValidateToolExecution_FailOpenDefaults(t *testing.T) {
	// No config at all, no patterns, no permissions: everything passes.
	require.NoError(t, ValidateToolExecution("anything", nil, models.OperationTypeExternal))

	config := &models.ToolspaceConfig{Name: "open"}
	require.NoError(t, ValidateToolExecution("anything", config, models.OperationTypeExternal))
}
