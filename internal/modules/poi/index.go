// README: Read-only spot index with nearest-spot queries.
package poi

import (
	"errors"

	"docent/internal/types"
)

var (
	ErrEmptyIndex = errors.New("spot index is empty")
	ErrInvalidFix = errors.New("fix coordinates out of range")
)

// Index is the read-only collection of spots. Built once at startup;
// iteration order is insertion order, which also breaks distance ties.
type Index struct {
	spots []*Spot
	byID  map[types.ID]*Spot
}

func NewIndex(spots []*Spot) (*Index, error) {
	if len(spots) == 0 {
		return nil, ErrEmptyIndex
	}
	idx := &Index{
		spots: spots,
		byID:  make(map[types.ID]*Spot, len(spots)),
	}
	for _, s := range spots {
		idx.byID[s.ID] = s
	}
	return idx, nil
}

// Get returns the spot with the given id, or nil.
func (idx *Index) Get(id types.ID) *Spot {
	return idx.byID[id]
}

// All returns the spots in insertion order. Callers must not mutate.
func (idx *Index) All() []*Spot {
	return idx.spots
}

// Len returns the number of spots.
func (idx *Index) Len() int {
	return len(idx.spots)
}

// Nearest returns the spot closest to the fix and its distance in metres.
// Ties keep the first spot in insertion order. Rejects out-of-range
// coordinates with ErrInvalidFix.
func (idx *Index) Nearest(fix Fix) (types.ID, float64, error) {
	if !fix.Position.Valid() {
		return "", 0, ErrInvalidFix
	}

	best := idx.spots[0]
	bestDist := haversineM(fix.Position, best.Position)
	for _, s := range idx.spots[1:] {
		if d := haversineM(fix.Position, s.Position); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best.ID, bestDist, nil
}

// DistanceTo returns the distance in metres from the fix to a specific spot.
func (idx *Index) DistanceTo(fix Fix, id types.ID) (float64, error) {
	if !fix.Position.Valid() {
		return 0, ErrInvalidFix
	}
	s := idx.byID[id]
	if s == nil {
		return 0, errors.New("unknown spot: " + string(id))
	}
	return haversineM(fix.Position, s.Position), nil
}

// SpotDistance pairs a spot with its distance from a fix, for map views.
type SpotDistance struct {
	Spot   *Spot
	Meters float64
}

// Distances returns every spot with its distance to the fix, closest first.
func (idx *Index) Distances(fix Fix) ([]SpotDistance, error) {
	if !fix.Position.Valid() {
		return nil, ErrInvalidFix
	}
	out := make([]SpotDistance, len(idx.spots))
	for i, s := range idx.spots {
		out[i] = SpotDistance{Spot: s, Meters: haversineM(fix.Position, s.Position)}
	}
	sortByDistance(out, func(sd SpotDistance) float64 { return sd.Meters })
	return out, nil
}
