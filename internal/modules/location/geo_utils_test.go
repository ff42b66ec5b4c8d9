package location

import (
	"math"
	"testing"
	"time"

	"courier/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			lat1:      37.7749, lng1: -122.4194,
			lat2:      37.7749, lng2: -122.4194,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Ferry Building to Oakland City Hall (~11km)",
			lat1:      37.7955, lng1: -122.3937,
			lat2:      37.8053, lng2: -122.2724,
			wantKm:    10.7,
			tolerance: 1.0,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			lat1:      40.7128, lng1: -74.0060,
			lat2:      34.0522, lng2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := haversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("haversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := haversineKm(37.0, -122.0, 38.0, -121.0)
	d2 := haversineKm(38.0, -121.0, 37.0, -122.0)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func fixAt(lat, lng float64, sec int) Fix {
	return Fix{Point: types.Point{Lat: lat, Lng: lng}, Timestamp: time.Unix(int64(sec), 0)}
}

func TestLatestFix(t *testing.T) {
	batch := []Fix{fixAt(1, 1, 20), fixAt(2, 2, 30), fixAt(3, 3, 10)}
	got, ok := latestFix(batch)
	if !ok || got.Point.Lat != 2 {
		t.Fatalf("latestFix() = %+v, %v", got, ok)
	}
	if _, ok := latestFix(nil); ok {
		t.Fatalf("latestFix(nil) reported a fix")
	}
}

func TestThinByDistance(t *testing.T) {
	// ~0.0001 deg latitude is ~11m
	batch := []Fix{fixAt(37.0, -122.0, 1), fixAt(37.0001, -122.0, 2), fixAt(37.001, -122.0, 3)}

	if got := thinByDistance(batch, nil, 0); len(got) != 3 {
		t.Fatalf("zero interval kept %d fixes", len(got))
	}
	got := thinByDistance(batch, nil, 50)
	if len(got) != 2 || got[1].Point.Lat != 37.001 {
		t.Fatalf("thinByDistance() = %+v", got)
	}
	last := fixAt(37.001, -122.0, 0)
	if got := thinByDistance(batch[2:], &last, 50); len(got) != 0 {
		t.Fatalf("fix next to last delivered was kept: %+v", got)
	}
}
