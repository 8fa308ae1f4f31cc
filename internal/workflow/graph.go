// Package workflow implements the work-order status graph: default
// and per-tenant-overridden transition validity, and the hold/resume
// status-graph interaction.
package workflow

import (
	"regexp"
	"sort"

	"github.com/manufab-platform/kpi-core/internal/domain"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
)

var statusNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Graph is a directed status graph: edges[from] lists the statuses
// reachable in one transition from from.
type Graph struct {
	edges    map[domain.WorkOrderStatus][]domain.WorkOrderStatus
	start    domain.WorkOrderStatus
	terminal map[domain.WorkOrderStatus]bool
	holds    map[domain.WorkOrderStatus]bool
}

// Default returns the canonical status graph. ON_HOLD is
// not given static outgoing edges here: its resume destination is resolved
// dynamically from the work order's recorded active_before_hold and the
// hold's disposition (see Resume).
func Default() *Graph {
	g := &Graph{
		edges: map[domain.WorkOrderStatus][]domain.WorkOrderStatus{
			domain.StatusReceived:   {domain.StatusDispatched, domain.StatusOnHold, domain.StatusCancelled},
			domain.StatusDispatched: {domain.StatusInWIP, domain.StatusOnHold, domain.StatusReceived},
			domain.StatusInWIP:      {domain.StatusCompleted, domain.StatusOnHold, domain.StatusDispatched},
			domain.StatusCompleted:  {domain.StatusShipped, domain.StatusInWIP},
			domain.StatusShipped:    {domain.StatusClosed},
			domain.StatusClosed:     {},
			domain.StatusOnHold:     {}, // resume edge resolved dynamically, not statically enumerable
			domain.StatusCancelled:  {},
			domain.StatusRejected:   {},
		},
		start: domain.StatusReceived,
		terminal: map[domain.WorkOrderStatus]bool{
			domain.StatusClosed:    true,
			domain.StatusCancelled: true,
			domain.StatusRejected:  true,
		},
		holds: map[domain.WorkOrderStatus]bool{domain.StatusOnHold: true},
	}
	return g
}

// CanTransition reports whether from→to is a valid edge.
func (g *Graph) CanTransition(from, to domain.WorkOrderStatus) bool {
	for _, next := range g.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status is one of the graph's declared terminal
// statuses. A hold node such as ON_HOLD also has no static outgoing edges
// but is not terminal.
func (g *Graph) IsTerminal(status domain.WorkOrderStatus) bool { return g.terminal[status] }

// IsHoldNode reports whether status is a declared hold node (resume-only
// outgoing edge, resolved dynamically rather than statically).
func (g *Graph) IsHoldNode(status domain.WorkOrderStatus) bool { return g.holds[status] }

// Validate checks the five per-tenant override rules for a custom status
// graph. A config failing any rule yields an error and no Graph.
func Validate(edges map[domain.WorkOrderStatus][]domain.WorkOrderStatus, start domain.WorkOrderStatus, terminals []domain.WorkOrderStatus, holdNodes []domain.WorkOrderStatus) (*Graph, error) {
	// Rule: no duplicate status names; names match ^[A-Z][A-Z0-9_]*$.
	seen := map[domain.WorkOrderStatus]bool{}
	for from, tos := range edges {
		if !statusNamePattern.MatchString(string(from)) {
			return nil, apperrors.Validation("status", "name "+string(from)+" does not match ^[A-Z][A-Z0-9_]*$")
		}
		if seen[from] {
			return nil, apperrors.Validation("status", "duplicate status "+string(from))
		}
		seen[from] = true
		for _, to := range tos {
			if !statusNamePattern.MatchString(string(to)) {
				return nil, apperrors.Validation("status", "name "+string(to)+" does not match ^[A-Z][A-Z0-9_]*$")
			}
		}
	}

	// Rule: exactly one start status (RECEIVED).
	if start != domain.StatusReceived {
		return nil, apperrors.Validation("start", "exactly one start status, RECEIVED, is required")
	}
	if _, ok := edges[start]; !ok {
		return nil, apperrors.Validation("start", "start status must be a declared node")
	}

	// Rule: at least one terminal among {CLOSED, CANCELLED, REJECTED}.
	terminalSet := map[domain.WorkOrderStatus]bool{}
	allowedTerminals := map[domain.WorkOrderStatus]bool{
		domain.StatusClosed: true, domain.StatusCancelled: true, domain.StatusRejected: true,
	}
	for _, t := range terminals {
		if !allowedTerminals[t] {
			return nil, apperrors.Validation("terminal", "terminal status must be one of CLOSED, CANCELLED, REJECTED")
		}
		terminalSet[t] = true
	}
	if len(terminalSet) == 0 {
		return nil, apperrors.Validation("terminal", "at least one terminal status is required")
	}

	holdSet := map[domain.WorkOrderStatus]bool{}
	for _, h := range holdNodes {
		holdSet[h] = true
	}

	// Rule: every non-terminal and every terminal reachable from start.
	reachable := map[domain.WorkOrderStatus]bool{}
	queue := []domain.WorkOrderStatus{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if reachable[cur] {
			continue
		}
		reachable[cur] = true
		for _, next := range edges[cur] {
			if !reachable[next] {
				queue = append(queue, next)
			}
		}
	}
	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, string(name))
	}
	sort.Strings(names)
	for _, name := range names {
		status := domain.WorkOrderStatus(name)
		if !reachable[status] {
			return nil, apperrors.Validation("reachability", "status "+name+" is not reachable from "+string(start))
		}
	}

	// Rule: no dead-end non-terminal, except declared hold nodes, which
	// must have a resume edge (modeled as: the node exists and is
	// recognized as a hold node — its resume edge is resolved dynamically
	// by Resume, not statically declared here).
	for _, name := range names {
		status := domain.WorkOrderStatus(name)
		if terminalSet[status] {
			continue
		}
		if len(edges[status]) == 0 && !holdSet[status] {
			return nil, apperrors.Validation("deadend", "status "+name+" is a non-terminal dead end with no outgoing transition")
		}
	}

	return &Graph{edges: edges, start: start, terminal: terminalSet, holds: holdSet}, nil
}
