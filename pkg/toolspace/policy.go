// Package toolspace enforces which tools a workflow may invoke and how much
// usage a (user, toolspace) pair may consume.
package toolspace

import (
	"fmt"
	"strings"

	"github.com/thomasdavis/generous/pkg/models"
)

// MatchToolPattern reports whether a tool id matches one pattern.
//
// Grammar: "*" matches anything; otherwise an exact match; "prefix/*"
// matches "prefix/anything" and the bare "prefix"; "*/suffix" matches
// "anything/suffix" and the bare "suffix"; "prefix/*/suffix" matches ids
// starting with "prefix/" and ending with "suffix". Only a single wildcard
// segment is supported.
func MatchToolPattern(toolID, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if !strings.Contains(pattern, "*") {
		return toolID == pattern
	}

	if suffix, ok := strings.CutPrefix(pattern, "*/"); ok && !strings.Contains(suffix, "*") {
		return toolID == suffix || strings.HasSuffix(toolID, "/"+suffix)
	}

	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && !strings.Contains(prefix, "*") {
		return toolID == prefix || strings.HasPrefix(toolID, prefix+"/")
	}

	before, after, found := strings.Cut(pattern, "/*")
	if found && !strings.Contains(before, "*") && !strings.Contains(after, "*") {
		suffix := strings.TrimPrefix(after, "/")

		return strings.HasPrefix(toolID, before+"/") && strings.HasSuffix(toolID, suffix)
	}

	// Multiple wildcard segments are not part of the grammar.
	return false
}

// IsToolAllowed reports whether the tool id matches at least one pattern.
// An empty pattern list allows everything: an unconfigured toolspace is
// unrestricted.
func IsToolAllowed(toolID string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		if MatchToolPattern(toolID, pattern) {
			return true
		}
	}

	return false
}

// ValidateToolExecution checks the pattern list and the permission flags for
// one prospective invocation. It returns a human-readable error naming the
// failed check, or nil when both pass. It has no side effects.
func ValidateToolExecution(toolID string, config *models.ToolspaceConfig, op models.OperationType) error {
	if config == nil {
		return nil
	}

	if !IsToolAllowed(toolID, config.Tools) {
		return fmt.Errorf("tool %q is not allowed by toolspace %q", toolID, config.Name)
	}

	if !config.Permissions.Allows(op) {
		return fmt.Errorf("operation %q is denied by toolspace %q permissions", op, config.Name)
	}

	return nil
}
