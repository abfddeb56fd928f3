package models

import "time"

// OperationType classifies what a tool invocation does for permission checks.
type OperationType string

const (
	OperationTypeRead     OperationType = "read"
	OperationTypeWrite    OperationType = "write"
	OperationTypeDelete   OperationType = "delete"
	OperationTypeExternal OperationType = "external"
)

// Well-known quota metric names.
const (
	QuotaMaxTokens    = "max_tokens"
	QuotaMaxCostCents = "max_cost_cents"
	QuotaMaxCalls     = "max_calls"
)

// ToolspacePermissions is the fixed set of named permission flags. A nil
// flag means the permission was never configured and defaults to allowed;
// only an explicit false denies.
type ToolspacePermissions struct {
	AllowRead        *bool `json:"allow_read,omitempty"`
	AllowWrite       *bool `json:"allow_write,omitempty"`
	AllowDelete      *bool `json:"allow_delete,omitempty"`
	AllowExternalAPI *bool `json:"allow_external_api,omitempty"`
}

// ToolspaceConfig scopes which tools a workflow may invoke and how much
// usage it may consume, per user.
type ToolspaceConfig struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"     validate:"required,min=3"`
	OwnerID     string                `json:"owner_id" validate:"required"`
	Tools       []string              `json:"tools"`
	Permissions *ToolspacePermissions `json:"permissions,omitempty"`
	Quotas      map[string]int64      `json:"quotas,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Allows reports whether the given operation is permitted. Absent
// permissions fail open.
func (p *ToolspacePermissions) Allows(op OperationType) bool {
	if p == nil {
		return true
	}

	var flag *bool

	switch op {
	case OperationTypeRead:
		flag = p.AllowRead
	case OperationTypeWrite:
		flag = p.AllowWrite
	case OperationTypeDelete:
		flag = p.AllowDelete
	case OperationTypeExternal:
		flag = p.AllowExternalAPI
	default:
		return true
	}

	return flag == nil || *flag
}
