// Package network holds the immutable rail network model: yards, directed
// capacitated edges, and the closed commodity set with its cost multipliers.
package network

import (
	"fmt"
	"sort"
	"strings"
)

// Commodity is a freight category with a fixed cost multiplier applied on top
// of an edge's base cost. The set is closed; there are no dynamic types.
type Commodity int

const (
	Coal Commodity = iota
	Grain
	Containers
	Chemicals
)

var commodityNames = [...]string{"coal", "grain", "containers", "chemicals"}

var commodityMultipliers = [...]float64{1.0, 1.2, 1.5, 2.0}

func (c Commodity) String() string {
	if c < 0 || int(c) >= len(commodityNames) {
		return fmt.Sprintf("commodity(%d)", int(c))
	}
	return commodityNames[c]
}

// Multiplier returns the commodity's cost multiplier.
func (c Commodity) Multiplier() float64 {
	return commodityMultipliers[c]
}

// ParseCommodity maps a name to its Commodity. Matching is
// case-insensitive; the canonical wire form is lowercase.
func ParseCommodity(s string) (Commodity, error) {
	for i, n := range commodityNames {
		if strings.EqualFold(n, s) {
			return Commodity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown commodity: %q", s)
}

// MaxMultiplier is the largest multiplier in the closed set, used when
// deriving penalty constants.
func MaxMultiplier() float64 {
	max := commodityMultipliers[0]
	for _, m := range commodityMultipliers[1:] {
		if m > max {
			max = m
		}
	}
	return max
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Yard is a rail terminal. Coordinates are informational; only Active yards
// participate in routing.
type Yard struct {
	ID     string
	Lat    float64
	Lon    float64
	Status string
}

func (y Yard) Active() bool { return y.Status == StatusActive }

// Edge is a directed capacitated arc between two yards. DistanceMi is unused
// by routing; it is carried for a later transit-time extension.
type Edge struct {
	From       string
	To         string
	Capacity   float64
	BaseCost   float64
	DistanceMi float64
}

// MalformedNetworkError reports a topology or attribute problem found at
// construction time. The referenced yard/edge identifies the culprit.
type MalformedNetworkError struct {
	Reason string
	YardID string
	From   string
	To     string
}

func (e *MalformedNetworkError) Error() string {
	switch {
	case e.From != "":
		return fmt.Sprintf("malformed network: %s (edge %s->%s)", e.Reason, e.From, e.To)
	case e.YardID != "":
		return fmt.Sprintf("malformed network: %s (yard %s)", e.Reason, e.YardID)
	default:
		return "malformed network: " + e.Reason
	}
}

// Network is the validated graph. Immutable after New; safe to share across
// concurrent solves and baseline runs.
type Network struct {
	yards   map[string]Yard
	yardIDs []string // active ids, sorted for deterministic iteration
	edges   []Edge   // arena; the slice index is the stable edge index
	out     map[string][]int
	in      map[string][]int
	byPair  map[[2]string]int
}

// New validates yards and edges and builds adjacency. Inactive yards are
// excluded from the graph; an edge touching a missing or inactive yard, a
// self-loop, a duplicate (from,to) pair, or a non-positive capacity all fail
// construction.
func New(yards []Yard, edges []Edge) (*Network, error) {
	n := &Network{
		yards:  make(map[string]Yard, len(yards)),
		out:    make(map[string][]int),
		in:     make(map[string][]int),
		byPair: make(map[[2]string]int, len(edges)),
	}
	for _, y := range yards {
		if y.ID == "" {
			return nil, &MalformedNetworkError{Reason: "empty yard id"}
		}
		if _, dup := n.yards[y.ID]; dup {
			return nil, &MalformedNetworkError{Reason: "duplicate yard id", YardID: y.ID}
		}
		n.yards[y.ID] = y
		if y.Active() {
			n.yardIDs = append(n.yardIDs, y.ID)
		}
	}
	sort.Strings(n.yardIDs)

	for _, e := range edges {
		if e.From == e.To {
			return nil, &MalformedNetworkError{Reason: "self-loop edge", From: e.From, To: e.To}
		}
		for _, id := range []string{e.From, e.To} {
			y, ok := n.yards[id]
			if !ok {
				return nil, &MalformedNetworkError{Reason: "edge references missing yard", From: e.From, To: e.To}
			}
			if !y.Active() {
				return nil, &MalformedNetworkError{Reason: "edge references inactive yard", From: e.From, To: e.To}
			}
		}
		if e.Capacity <= 0 {
			return nil, &MalformedNetworkError{Reason: "non-positive capacity", From: e.From, To: e.To}
		}
		if e.BaseCost < 0 {
			return nil, &MalformedNetworkError{Reason: "negative base cost", From: e.From, To: e.To}
		}
		pair := [2]string{e.From, e.To}
		if _, dup := n.byPair[pair]; dup {
			return nil, &MalformedNetworkError{Reason: "parallel edge", From: e.From, To: e.To}
		}
		idx := len(n.edges)
		n.edges = append(n.edges, e)
		n.byPair[pair] = idx
		n.out[e.From] = append(n.out[e.From], idx)
		n.in[e.To] = append(n.in[e.To], idx)
	}
	return n, nil
}

// NumEdges returns the size of the edge arena.
func (n *Network) NumEdges() int { return len(n.edges) }

// Edge returns the edge at index i.
func (n *Network) Edge(i int) Edge { return n.edges[i] }

// YardIDs returns the active yard ids in sorted order. Callers must not
// mutate the returned slice.
func (n *Network) YardIDs() []string { return n.yardIDs }

// Yard looks up a yard by id.
func (n *Network) Yard(id string) (Yard, bool) {
	y, ok := n.yards[id]
	return y, ok
}

// HasActiveYard reports whether id names an active yard.
func (n *Network) HasActiveYard(id string) bool {
	y, ok := n.yards[id]
	return ok && y.Active()
}

// OutEdges returns indices of edges leaving the yard, in insertion order.
func (n *Network) OutEdges(yard string) []int { return n.out[yard] }

// InEdges returns indices of edges entering the yard, in insertion order.
func (n *Network) InEdges(yard string) []int { return n.in[yard] }

// EdgeBetween returns the index of the edge from->to if one exists.
func (n *Network) EdgeBetween(from, to string) (int, bool) {
	idx, ok := n.byPair[[2]string{from, to}]
	return idx, ok
}

// EffectiveCost is the per-unit cost of moving commodity c over edge i.
func (n *Network) EffectiveCost(i int, c Commodity) float64 {
	return n.edges[i].BaseCost * c.Multiplier()
}

// Reachable reports whether to can be reached from from over directed edges.
// Used to flag unroutable demands ahead of the solve.
func (n *Network) Reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ei := range n.out[cur] {
			next := n.edges[ei].To
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
