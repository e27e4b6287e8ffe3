package slam

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// ShotPair identifies ordered pair of shots whose keypoints were matched
type ShotPair struct {
	Shot1 uuid.UUID
	Shot2 uuid.UUID
}

// Feature is a keypoint of a particular shot
type Feature struct {
	Shot  uuid.UUID
	Index int
}

// CommonFeature is a track observed by two shots
type CommonFeature struct {
	TrackID int
	Index1  int
	Index2  int
}

// TracksManager stores multi-shot tracks built from pairwise matches
type TracksManager struct {
	// Track ID -> shot -> keypoint index
	tracks []map[uuid.UUID]int
	// Shot -> track ID -> keypoint index
	shots map[uuid.UUID]map[int]int
}

// unionFind is a disjoint set forest over features with path compression and union by rank
type unionFind struct {
	parent map[Feature]Feature
	rank   map[Feature]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[Feature]Feature),
		rank:   make(map[Feature]int),
	}
}

func (uf *unionFind) find(f Feature) Feature {
	parent, ok := uf.parent[f]
	if !ok {
		uf.parent[f] = f
		return f
	}
	if parent == f {
		return f
	}
	root := uf.find(parent)
	uf.parent[f] = root
	return root
}

func (uf *unionFind) union(a, b Feature) {
	rootA := uf.find(a)
	rootB := uf.find(b)
	if rootA == rootB {
		return
	}
	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
}

func featureLess(a, b Feature) bool {
	if cmp := bytes.Compare(a.Shot[:], b.Shot[:]); cmp != 0 {
		return cmp < 0
	}
	return a.Index < b.Index
}

// CreateTracks links pairwise matches into tracks.
// Track is kept if it has at least minLength features and no shot is observed twice
func CreateTracks(matches map[ShotPair]MatchList, minLength int) *TracksManager {
	uf := newUnionFind()
	for pair, pairMatches := range matches {
		for _, match := range pairMatches {
			uf.union(Feature{Shot: pair.Shot1, Index: match.Index1}, Feature{Shot: pair.Shot2, Index: match.Index2})
		}
	}

	sets := make(map[Feature][]Feature)
	for feature := range uf.parent {
		root := uf.find(feature)
		sets[root] = append(sets[root], feature)
	}
	candidates := make([][]Feature, 0, len(sets))
	for _, set := range sets {
		sort.Slice(set, func(i, j int) bool { return featureLess(set[i], set[j]) })
		candidates = append(candidates, set)
	}
	// Deterministic track IDs
	sort.Slice(candidates, func(i, j int) bool { return featureLess(candidates[i][0], candidates[j][0]) })

	manager := &TracksManager{
		tracks: make([]map[uuid.UUID]int, 0, len(candidates)),
		shots:  make(map[uuid.UUID]map[int]int),
	}
	for _, set := range candidates {
		if !goodTrack(set, minLength) {
			continue
		}
		trackID := len(manager.tracks)
		observations := make(map[uuid.UUID]int, len(set))
		for _, feature := range set {
			observations[feature.Shot] = feature.Index
			if _, ok := manager.shots[feature.Shot]; !ok {
				manager.shots[feature.Shot] = make(map[int]int)
			}
			manager.shots[feature.Shot][trackID] = feature.Index
		}
		manager.tracks = append(manager.tracks, observations)
	}
	return manager
}

func goodTrack(track []Feature, minLength int) bool {
	if len(track) < minLength {
		return false
	}
	seen := make(map[uuid.UUID]struct{}, len(track))
	for _, feature := range track {
		if _, ok := seen[feature.Shot]; ok {
			return false
		}
		seen[feature.Shot] = struct{}{}
	}
	return true
}

// NumTracks returns number of tracks
func (manager *TracksManager) NumTracks() int {
	return len(manager.tracks)
}

// TrackObservations returns shot -> keypoint index of the track
func (manager *TracksManager) TrackObservations(trackID int) map[uuid.UUID]int {
	if trackID < 0 || trackID >= len(manager.tracks) {
		return nil
	}
	return manager.tracks[trackID]
}

// ShotObservations returns track ID -> keypoint index of the shot
func (manager *TracksManager) ShotObservations(shotID uuid.UUID) map[int]int {
	return manager.shots[shotID]
}

// CommonTracks returns tracks observed in both shots ordered by track ID
func (manager *TracksManager) CommonTracks(shot1, shot2 uuid.UUID) []CommonFeature {
	obs1 := manager.shots[shot1]
	obs2 := manager.shots[shot2]
	common := make([]CommonFeature, 0)
	for trackID, idx1 := range obs1 {
		idx2, ok := obs2[trackID]
		if !ok {
			continue
		}
		common = append(common, CommonFeature{TrackID: trackID, Index1: idx1, Index2: idx2})
	}
	sort.Slice(common, func(i, j int) bool { return common[i].TrackID < common[j].TrackID })
	return common
}

// AllCommonTracks returns common tracks of every shot pair sharing at least minCommon tracks.
// Pairs are keyed with Shot1 < Shot2
func (manager *TracksManager) AllCommonTracks(minCommon int) map[ShotPair][]CommonFeature {
	shotIDs := manager.sortedShots()
	result := make(map[ShotPair][]CommonFeature)
	for i := 0; i < len(shotIDs); i++ {
		for j := i + 1; j < len(shotIDs); j++ {
			common := manager.CommonTracks(shotIDs[i], shotIDs[j])
			if len(common) == 0 || len(common) < minCommon {
				continue
			}
			result[ShotPair{Shot1: shotIDs[i], Shot2: shotIDs[j]}] = common
		}
	}
	return result
}

// sortedShots returns shots observing at least one track in byte order
func (manager *TracksManager) sortedShots() []uuid.UUID {
	shotIDs := make([]uuid.UUID, 0, len(manager.shots))
	for shotID := range manager.shots {
		shotIDs = append(shotIDs, shotID)
	}
	sort.Slice(shotIDs, func(i, j int) bool { return bytes.Compare(shotIDs[i][:], shotIDs[j][:]) < 0 })
	return shotIDs
}
