// Package baseline implements the two benchmark routers the optimizer is
// compared against: an independent greedy shortest-cost-path router and a
// first-come-first-served router with capacity reservation. Neither is a
// production routing policy.
package baseline

import (
	"container/heap"
	"math"

	"railnav/internal/network"
)

type pqItem struct {
	yard string
	cost float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	it := old[len(old)-1]
	*pq = old[:len(old)-1]
	return it
}

// shortestPath runs Dijkstra from->to over commodity-weighted edge costs.
// When residual is non-nil, edges with residual capacity below need are
// skipped. Returns the edge indices of the path, its per-unit cost, and
// whether a path was found.
func shortestPath(n *network.Network, from, to string, c network.Commodity, residual []float64, need float64) ([]int, float64, bool) {
	dist := map[string]float64{from: 0}
	prevEdge := map[string]int{}
	done := map[string]bool{}

	pq := &priorityQueue{{yard: from, cost: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		it := heap.Pop(pq).(pqItem)
		if done[it.yard] {
			continue
		}
		done[it.yard] = true
		if it.yard == to {
			break
		}
		for _, e := range n.OutEdges(it.yard) {
			if residual != nil && residual[e] < need {
				continue
			}
			next := n.Edge(e).To
			alt := it.cost + n.EffectiveCost(e, c)
			if old, seen := dist[next]; !seen || alt < old {
				dist[next] = alt
				prevEdge[next] = e
				heap.Push(pq, pqItem{yard: next, cost: alt})
			}
		}
	}
	total, seen := dist[to]
	if !seen {
		return nil, math.Inf(1), false
	}
	var edges []int
	cur := to
	for cur != from {
		e, ok := prevEdge[cur]
		if !ok {
			return nil, math.Inf(1), false
		}
		edges = append(edges, e)
		cur = n.Edge(e).From
	}
	// Reverse into from->to order.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges, total, true
}
