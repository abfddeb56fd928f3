package toolspace

import (
	"strings"
	"time"
)

// Cost model constants, in hundredths of a cent internally to keep the
// arithmetic integral. External tools (namespaced with "@") carry real
// upstream spend, so they are priced an order of magnitude above builtins.
const (
	externalNamespaceMarker = "@"

	baseCostCentiCents       = 10 // flat per-invocation floor
	perThousandTokensCC      = 25
	perSecondWallTimeCC      = 5
	externalCostMultiplier   = 10
	builtinCostMultiplier    = 1
	centiCentsPerCent        = 100
)

// IsExternalTool reports whether a tool id refers to an external capability
// rather than a builtin, based on the namespace marker.
func IsExternalTool(toolID string) bool {
	return strings.HasPrefix(toolID, externalNamespaceMarker)
}

// EstimateCost computes the cost in cents of one invocation from the tool
// id, wall time, and token count. It is deterministic: identical inputs
// always price identically, so recorded usage can be audited.
func EstimateCost(toolID string, wallTime time.Duration, tokens int64) int64 {
	multiplier := int64(builtinCostMultiplier)
	if IsExternalTool(toolID) {
		multiplier = externalCostMultiplier
	}

	centiCents := int64(baseCostCentiCents)
	centiCents += tokens * perThousandTokensCC / 1000
	centiCents += int64(wallTime/time.Second) * perSecondWallTimeCC
	centiCents *= multiplier

	// Round up to a whole cent so repeated small invocations are never free.
	return (centiCents + centiCentsPerCent - 1) / centiCentsPerCent
}
