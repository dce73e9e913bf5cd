// Package geoindex maintains an in-memory spatial index over submission
// locations. It answers point-radius queries and is kept in lockstep with
// the store: insert on create, remove on delete.
package geoindex

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/localphoto/backend/internal/geo"
)

// Index is the spatial index consumed by the store and the proximity
// engine. QueryRadius is a candidate prefilter: implementations may
// over-approximate, the caller re-checks with the exact great-circle
// distance before including a result.
type Index interface {
	Insert(id uuid.UUID, p geo.Point)
	Remove(id uuid.UUID)
	Update(id uuid.UUID, p geo.Point)
	QueryRadius(center geo.Point, radiusMeters float64) []uuid.UUID
}

// metersPerDegreeLat is close enough for sizing grid cells and bounding
// boxes; exact distances are computed by the caller.
const metersPerDegreeLat = 111_320.0

type cellKey struct {
	latIdx int
	lngIdx int
}

// GridIndex buckets points into fixed-size latitude/longitude cells
// guarded by a single RWMutex. Queries scan only the cells covered by
// the bounding box of the requested radius.
type GridIndex struct {
	mu       sync.RWMutex
	cellDeg  float64
	cells    map[cellKey]map[uuid.UUID]geo.Point
	location map[uuid.UUID]cellKey
}

// NewGridIndex creates a grid index with the given cell size in degrees.
// Sizes at or below zero fall back to one-degree cells.
func NewGridIndex(cellDeg float64) *GridIndex {
	if cellDeg <= 0 {
		cellDeg = 1.0
	}
	return &GridIndex{
		cellDeg:  cellDeg,
		cells:    make(map[cellKey]map[uuid.UUID]geo.Point),
		location: make(map[uuid.UUID]cellKey),
	}
}

func (g *GridIndex) keyFor(p geo.Point) cellKey {
	return cellKey{
		latIdx: int(math.Floor(p.Lat / g.cellDeg)),
		lngIdx: int(math.Floor(p.Lng / g.cellDeg)),
	}
}

// Insert adds or replaces the point for id.
func (g *GridIndex) Insert(id uuid.UUID, p geo.Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertLocked(id, p)
}

func (g *GridIndex) insertLocked(id uuid.UUID, p geo.Point) {
	if old, ok := g.location[id]; ok {
		g.removeFromCellLocked(id, old)
	}
	key := g.keyFor(p)
	cell, ok := g.cells[key]
	if !ok {
		cell = make(map[uuid.UUID]geo.Point)
		g.cells[key] = cell
	}
	cell[id] = p
	g.location[id] = key
}

// Remove drops id from the index. Removing an unknown id is a no-op.
func (g *GridIndex) Remove(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key, ok := g.location[id]
	if !ok {
		return
	}
	g.removeFromCellLocked(id, key)
	delete(g.location, id)
}

func (g *GridIndex) removeFromCellLocked(id uuid.UUID, key cellKey) {
	if cell, ok := g.cells[key]; ok {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, key)
		}
	}
}

// Update re-positions id. Locations are immutable in practice, but the
// index supports it so the store contract is complete.
func (g *GridIndex) Update(id uuid.UUID, p geo.Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertLocked(id, p)
}

// QueryRadius returns the ids of all points within radiusMeters of
// center. Candidates come from the cells covered by the bounding box;
// each is confirmed with the exact haversine distance, boundary
// inclusive.
func (g *GridIndex) QueryRadius(center geo.Point, radiusMeters float64) []uuid.UUID {
	if radiusMeters < 0 {
		return nil
	}

	latDelta := radiusMeters / metersPerDegreeLat
	minLat := math.Max(center.Lat-latDelta, -90)
	maxLat := math.Min(center.Lat+latDelta, 90)

	// Longitude degrees shrink toward the poles; size the box at the
	// poleward edge of the latitude range, where they are shortest,
	// so it never under-covers.
	polewardLat := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cosLat := math.Cos(polewardLat * math.Pi / 180)

	minLngIdx := int(math.Floor(-180 / g.cellDeg))
	maxLngIdx := int(math.Floor(180 / g.cellDeg))
	if cosLat > 1e-9 {
		lngDelta := radiusMeters / (metersPerDegreeLat * cosLat)
		if lngDelta < 360 {
			minLngIdx = int(math.Floor((center.Lng - lngDelta) / g.cellDeg))
			maxLngIdx = int(math.Floor((center.Lng + lngDelta) / g.cellDeg))
		}
	}

	minLatIdx := int(math.Floor(minLat / g.cellDeg))
	maxLatIdx := int(math.Floor(maxLat / g.cellDeg))
	lngCells := int(math.Ceil(360 / g.cellDeg))

	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []uuid.UUID
	for latIdx := minLatIdx; latIdx <= maxLatIdx; latIdx++ {
		for lngIdx := minLngIdx; lngIdx <= maxLngIdx; lngIdx++ {
			// Wrap the antimeridian so a box crossing +-180 still
			// finds cells stored under the canonical index.
			wrapped := lngIdx
			for wrapped < int(math.Floor(-180/g.cellDeg)) {
				wrapped += lngCells
			}
			for wrapped > int(math.Floor(180/g.cellDeg)) {
				wrapped -= lngCells
			}
			cell, ok := g.cells[cellKey{latIdx: latIdx, lngIdx: wrapped}]
			if !ok {
				continue
			}
			for id, p := range cell {
				if geo.DistanceMeters(center, p) <= radiusMeters {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// Len reports the number of indexed points.
func (g *GridIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.location)
}
