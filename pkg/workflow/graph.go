package workflow

import (
	"errors"
	"fmt"

	"github.com/thomasdavis/generous/pkg/models"
)

// ErrCyclicDefinition indicates a definition's edges form a cycle. Cycles
// are a definition error caught at save time; the engine re-detects them at
// run time as a defense against records saved before this check existed.
var ErrCyclicDefinition = errors.New("workflow graph contains a cycle")

// ValidateDefinition checks the structural invariants of a definition and
// that its edge set forms a directed acyclic graph.
func ValidateDefinition(definition *models.WorkflowDefinition) error {
	if err := definition.ValidateStructure(); err != nil {
		return err
	}

	return detectCycle(definition)
}

// detectCycle runs Kahn's algorithm over the edge set.
func detectCycle(definition *models.WorkflowDefinition) error {
	indegree := make(map[string]int, len(definition.Nodes))
	children := make(map[string][]string, len(definition.Nodes))

	for _, node := range definition.Nodes {
		indegree[node.ID] = 0
	}

	for _, edge := range definition.Edges {
		indegree[edge.To]++
		children[edge.From] = append(children[edge.From], edge.To)
	}

	queue := make([]string, 0, len(definition.Nodes))

	for _, node := range definition.Nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	visited := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, child := range children[current] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if visited != len(definition.Nodes) {
		return fmt.Errorf("%w: %d of %d nodes unreachable from the roots", ErrCyclicDefinition, len(definition.Nodes)-visited, len(definition.Nodes))
	}

	return nil
}
