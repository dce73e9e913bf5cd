package geoindex

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localphoto/backend/internal/geo"
)

func TestGridIndexQueryRadius(t *testing.T) {
	idx := NewGridIndex(1.0)

	downtown := uuid.New()
	mission := uuid.New()
	newYork := uuid.New()

	idx.Insert(downtown, geo.Point{Lat: 37.7749, Lng: -122.4194})
	idx.Insert(mission, geo.Point{Lat: 37.7599, Lng: -122.4148})
	idx.Insert(newYork, geo.Point{Lat: 40.7128, Lng: -74.0060})

	// 5 km around downtown SF finds both SF points, not New York.
	ids := idx.QueryRadius(geo.Point{Lat: 37.7749, Lng: -122.4194}, 5_000)
	assert.ElementsMatch(t, []uuid.UUID{downtown, mission}, ids)

	// 500 m finds only downtown.
	ids = idx.QueryRadius(geo.Point{Lat: 37.7749, Lng: -122.4194}, 500)
	assert.Equal(t, []uuid.UUID{downtown}, ids)

	// A continent-sized radius finds everything.
	ids = idx.QueryRadius(geo.Point{Lat: 39, Lng: -98}, 5_000_000)
	assert.Len(t, ids, 3)
}

func TestGridIndexHighLatitude(t *testing.T) {
	idx := NewGridIndex(1.0)
	id := uuid.New()

	// At 70°N a longitude degree is only ~38 km, so a 100 km radius
	// spans several degrees of longitude. The bounding box has to be
	// sized at the poleward edge of its latitude range or points near
	// the east/west extremes fall outside it.
	center := geo.Point{Lat: 70, Lng: 0.47}
	point := geo.Point{Lat: 70, Lng: 3.05}
	require.Less(t, geo.DistanceMeters(center, point), 100_000.0)

	idx.Insert(id, point)
	assert.Equal(t, []uuid.UUID{id}, idx.QueryRadius(center, 100_000))
}

func TestGridIndexStraddlesEquator(t *testing.T) {
	idx := NewGridIndex(1.0)
	north := uuid.New()
	south := uuid.New()

	idx.Insert(north, geo.Point{Lat: 0.5, Lng: 10})
	idx.Insert(south, geo.Point{Lat: -0.5, Lng: 10})

	ids := idx.QueryRadius(geo.Point{Lat: 0, Lng: 10}, 100_000)
	assert.ElementsMatch(t, []uuid.UUID{north, south}, ids)
}

func TestGridIndexRemove(t *testing.T) {
	idx := NewGridIndex(1.0)
	id := uuid.New()
	p := geo.Point{Lat: 10, Lng: 10}

	idx.Insert(id, p)
	require.Equal(t, 1, idx.Len())

	idx.Remove(id)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.QueryRadius(p, 1_000))

	// Removing again is a no-op.
	idx.Remove(id)
	assert.Equal(t, 0, idx.Len())
}

func TestGridIndexUpdateMovesPoint(t *testing.T) {
	idx := NewGridIndex(1.0)
	id := uuid.New()

	idx.Insert(id, geo.Point{Lat: 10, Lng: 10})
	idx.Update(id, geo.Point{Lat: -33.8688, Lng: 151.2093})

	assert.Empty(t, idx.QueryRadius(geo.Point{Lat: 10, Lng: 10}, 10_000))
	assert.Equal(t, []uuid.UUID{id},
		idx.QueryRadius(geo.Point{Lat: -33.8688, Lng: 151.2093}, 10_000))
	assert.Equal(t, 1, idx.Len())
}

func TestGridIndexAcrossCellBoundary(t *testing.T) {
	idx := NewGridIndex(1.0)
	id := uuid.New()

	// Point just across a one-degree cell boundary from the query
	// center; the bounding box must still cover it.
	idx.Insert(id, geo.Point{Lat: 10.001, Lng: 10.001})
	ids := idx.QueryRadius(geo.Point{Lat: 9.999, Lng: 9.999}, 5_000)
	assert.Equal(t, []uuid.UUID{id}, ids)
}

func TestGridIndexAntimeridian(t *testing.T) {
	idx := NewGridIndex(1.0)
	east := uuid.New()
	west := uuid.New()

	idx.Insert(east, geo.Point{Lat: 0, Lng: 179.9})
	idx.Insert(west, geo.Point{Lat: 0, Lng: -179.9})

	// The two points are ~22 km apart across the antimeridian.
	ids := idx.QueryRadius(geo.Point{Lat: 0, Lng: 179.9}, 50_000)
	assert.ElementsMatch(t, []uuid.UUID{east, west}, ids)
}

func TestGridIndexConcurrentAccess(t *testing.T) {
	idx := NewGridIndex(1.0)
	center := geo.Point{Lat: 37.7749, Lng: -122.4194}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			idx.Insert(uuid.New(), center)
		}()
		go func() {
			defer wg.Done()
			idx.QueryRadius(center, 1_000)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, idx.Len())
}
