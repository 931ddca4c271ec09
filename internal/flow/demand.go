// Package flow compiles a network and a demand set into a multi-commodity
// flow MILP, and validates and interprets the assignment a solving engine
// returns for it.
package flow

import (
	"fmt"
	"strings"

	"railnav/internal/network"
)

// Demand is a single freight shipment request. Demands are independent and
// read-only during a solve; they are referenced by index throughout the flow
// and satisfaction variables.
type Demand struct {
	Origin      string
	Destination string
	Quantity    float64
	Commodity   network.Commodity
	// Weight scales the unmet-demand penalty. Must be positive.
	Weight float64
	// Tier is the human priority label (high/medium/low) used for
	// per-tier satisfaction reporting. Informational only.
	Tier string
}

// DemandProblem identifies one invalid demand by index.
type DemandProblem struct {
	Index  int
	Reason string
}

// MalformedDemandError collects every invalid demand in a set so callers see
// all problems at once rather than failing on the first.
type MalformedDemandError struct {
	Problems []DemandProblem
}

func (e *MalformedDemandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d malformed demand(s):", len(e.Problems))
	for _, p := range e.Problems {
		fmt.Fprintf(&b, " [%d] %s;", p.Index, p.Reason)
	}
	return strings.TrimSuffix(b.String(), ";")
}

// ValidateDemands checks every demand against the network. A nil return
// means the whole set is usable.
func ValidateDemands(n *network.Network, demands []Demand) error {
	var problems []DemandProblem
	add := func(i int, reason string) {
		problems = append(problems, DemandProblem{Index: i, Reason: reason})
	}
	for i, d := range demands {
		if d.Origin == d.Destination {
			add(i, fmt.Sprintf("origin equals destination (%s)", d.Origin))
		}
		if !n.HasActiveYard(d.Origin) {
			add(i, fmt.Sprintf("unknown or inactive origin yard %q", d.Origin))
		}
		if !n.HasActiveYard(d.Destination) {
			add(i, fmt.Sprintf("unknown or inactive destination yard %q", d.Destination))
		}
		if d.Quantity <= 0 {
			add(i, fmt.Sprintf("non-positive quantity %v", d.Quantity))
		}
		if d.Weight <= 0 {
			add(i, fmt.Sprintf("non-positive priority weight %v", d.Weight))
		}
		if int(d.Commodity) < 0 || d.Commodity > network.Chemicals {
			add(i, fmt.Sprintf("unknown commodity %d", int(d.Commodity)))
		}
	}
	if len(problems) > 0 {
		return &MalformedDemandError{Problems: problems}
	}
	return nil
}
