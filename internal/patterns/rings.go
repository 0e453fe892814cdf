package patterns

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/internal/transactions"
)

const (
	ringMinMembers       = 3
	ringCriticalMembers  = 5
	ringMaxExternalRatio = 0.2
	ringMinReciprocity   = 0.8
	ringRepeatThreshold  = 2
)

// RingDetector finds closed trading groups: clusters of accounts that
// repeatedly and reciprocally trade with each other and barely trade
// outside the cluster.
type RingDetector struct {
	graph TradeGraph
}

// NewRingDetector creates a ring detector.
func NewRingDetector(graph TradeGraph) *RingDetector {
	return &RingDetector{graph: graph}
}

type pairKey struct {
	a, b uuid.UUID
}

func orderedPair(a, b uuid.UUID) pairKey {
	if a.String() > b.String() {
		a, b = b, a
	}
	return pairKey{a, b}
}

// tradeGraph is the in-memory adjacency the detector works on.
type tradeGraph struct {
	// counts per unordered pair, split by direction
	forward map[pairKey]int
	reverse map[pairKey]int
	// adjacency restricted to repeatedly-traded pairs
	strong map[uuid.UUID][]uuid.UUID
	// all trade counts per user
	userTrades map[uuid.UUID]int
}

func buildTradeGraph(edges []transactions.Edge) *tradeGraph {
	g := &tradeGraph{
		forward:    make(map[pairKey]int),
		reverse:    make(map[pairKey]int),
		strong:     make(map[uuid.UUID][]uuid.UUID),
		userTrades: make(map[uuid.UUID]int),
	}

	for _, e := range edges {
		key := orderedPair(e.From, e.To)
		if key.a == e.From {
			g.forward[key] += e.Count
		} else {
			g.reverse[key] += e.Count
		}
		g.userTrades[e.From] += e.Count
		g.userTrades[e.To] += e.Count
	}

	for key := range g.forward {
		if g.forward[key]+g.reverse[key] >= ringRepeatThreshold {
			g.strong[key.a] = append(g.strong[key.a], key.b)
			g.strong[key.b] = append(g.strong[key.b], key.a)
		}
	}
	for key, n := range g.reverse {
		if _, ok := g.forward[key]; ok {
			continue // already linked above
		}
		if n >= ringRepeatThreshold {
			g.strong[key.a] = append(g.strong[key.a], key.b)
			g.strong[key.b] = append(g.strong[key.b], key.a)
		}
	}

	return g
}

// components returns the connected components of the repeat-trade subgraph.
func (g *tradeGraph) components() [][]uuid.UUID {
	visited := make(map[uuid.UUID]bool)
	var comps [][]uuid.UUID

	for user := range g.strong {
		if visited[user] {
			continue
		}
		comp := []uuid.UUID{}
		queue := []uuid.UUID{user}
		visited[user] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp = append(comp, u)
			for _, v := range g.strong[u] {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// externalRatio is the share of a component's trades made with outsiders.
func (g *tradeGraph) externalRatio(comp []uuid.UUID) float64 {
	members := make(map[uuid.UUID]bool, len(comp))
	for _, u := range comp {
		members[u] = true
	}

	var internal, total int
	for key, n := range g.forward {
		total += tradeContribution(members, key, n, &internal)
	}
	for key, n := range g.reverse {
		total += tradeContribution(members, key, n, &internal)
	}
	if total == 0 {
		return 1
	}
	return float64(total-internal) / float64(total)
}

func tradeContribution(members map[uuid.UUID]bool, key pairKey, n int, internal *int) int {
	inA, inB := members[key.a], members[key.b]
	if !inA && !inB {
		return 0
	}
	if inA && inB {
		*internal += n
	}
	return n
}

// reciprocity is the fraction of a component's traded pairs that traded in
// both directions.
func (g *tradeGraph) reciprocity(comp []uuid.UUID) float64 {
	members := make(map[uuid.UUID]bool, len(comp))
	for _, u := range comp {
		members[u] = true
	}

	var pairs, reciprocal int
	seen := make(map[pairKey]bool)
	check := func(key pairKey) {
		if seen[key] || !members[key.a] || !members[key.b] {
			return
		}
		seen[key] = true
		pairs++
		if g.forward[key] > 0 && g.reverse[key] > 0 {
			reciprocal++
		}
	}
	for key := range g.forward {
		check(key)
	}
	for key := range g.reverse {
		check(key)
	}
	if pairs == 0 {
		return 0
	}
	return float64(reciprocal) / float64(pairs)
}

// Detect analyzes completed transactions since the given time and returns a
// pattern per detected ring.
func (d *RingDetector) Detect(ctx context.Context, since time.Time) ([]SuspiciousPattern, error) {
	edges, err := d.graph.GetCompletedEdges(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("get completed edges: %w", err)
	}

	g := buildTradeGraph(edges)
	now := time.Now().UTC()
	found := make([]SuspiciousPattern, 0)

	for _, comp := range g.components() {
		if len(comp) < ringMinMembers {
			continue
		}
		external := g.externalRatio(comp)
		recip := g.reciprocity(comp)
		if external >= ringMaxExternalRatio || recip < ringMinReciprocity {
			continue
		}

		severity := SeverityHigh
		if len(comp) >= ringCriticalMembers {
			severity = SeverityCritical
		}

		sort.Slice(comp, func(i, j int) bool { return comp[i].String() < comp[j].String() })
		found = append(found, SuspiciousPattern{
			ID:            uuid.New(),
			Type:          TypeTradingRing,
			Description:   fmt.Sprintf("%d accounts trade almost exclusively with each other", len(comp)),
			Severity:      severity,
			AffectedUsers: comp,
			Evidence: map[string]interface{}{
				"member_count":   len(comp),
				"external_ratio": external,
				"reciprocity":    recip,
			},
			DetectedAt: now,
		})
	}
	return found, nil
}
