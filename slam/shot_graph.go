package slam

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/graph/simple"
)

// ShotGraph is an undirected graph of shots. Edge weight is the number of tracks both shots observe
type ShotGraph struct {
	*simple.WeightedUndirectedGraph
	nodes map[uuid.UUID]int64
	shots []uuid.UUID
}

// AsWeightedGraph builds graph with a node for every shot observing a track
// and an edge for every shot pair sharing at least one track
func (manager *TracksManager) AsWeightedGraph() *ShotGraph {
	shotIDs := manager.sortedShots()
	g := &ShotGraph{
		WeightedUndirectedGraph: simple.NewWeightedUndirectedGraph(0, 0),
		nodes:                   make(map[uuid.UUID]int64, len(shotIDs)),
		shots:                   shotIDs,
	}
	for i, shotID := range shotIDs {
		g.nodes[shotID] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for pair, common := range manager.AllCommonTracks(1) {
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(g.nodes[pair.Shot1]),
			T: simple.Node(g.nodes[pair.Shot2]),
			W: float64(len(common)),
		})
	}
	return g
}

// NodeOf returns graph node ID of shot
func (g *ShotGraph) NodeOf(shotID uuid.UUID) (int64, bool) {
	id, ok := g.nodes[shotID]
	return id, ok
}

// ShotOf returns shot of graph node ID
func (g *ShotGraph) ShotOf(nodeID int64) (uuid.UUID, bool) {
	if nodeID < 0 || nodeID >= int64(len(g.shots)) {
		return uuid.Nil, false
	}
	return g.shots[nodeID], true
}

// NumCommonTracks returns edge weight between two shots; zero if they share nothing
func (g *ShotGraph) NumCommonTracks(shot1, shot2 uuid.UUID) int {
	id1, ok1 := g.nodes[shot1]
	id2, ok2 := g.nodes[shot2]
	if !ok1 || !ok2 || id1 == id2 {
		return 0
	}
	edge := g.WeightedEdge(id1, id2)
	if edge == nil {
		return 0
	}
	return int(edge.Weight())
}

// Neighbours returns shots sharing tracks with shotID, most connected first
func (g *ShotGraph) Neighbours(shotID uuid.UUID) []uuid.UUID {
	id, ok := g.nodes[shotID]
	if !ok {
		return nil
	}
	type neighbour struct {
		node   int64
		weight float64
	}
	neighbours := make([]neighbour, 0)
	for it := g.From(id); it.Next(); {
		other := it.Node().ID()
		neighbours = append(neighbours, neighbour{node: other, weight: g.WeightedEdge(id, other).Weight()})
	}
	sort.Slice(neighbours, func(i, j int) bool {
		if neighbours[i].weight != neighbours[j].weight {
			return neighbours[i].weight > neighbours[j].weight
		}
		return neighbours[i].node < neighbours[j].node
	})
	result := make([]uuid.UUID, len(neighbours))
	for i, n := range neighbours {
		result[i] = g.shots[n.node]
	}
	return result
}
