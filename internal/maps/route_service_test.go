package maps

import (
	"context"
	"errors"
	"testing"
	"time"

	"googlemaps.github.io/maps"
)

type stubDirections struct {
	routes []maps.Route
	err    error
	got    *maps.DirectionsRequest
}

func (s *stubDirections) Directions(_ context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error) {
	s.got = r
	return s.routes, nil, s.err
}

func TestTravelEstimate(t *testing.T) {
	stub := &stubDirections{routes: []maps.Route{{
		Legs: []*maps.Leg{{
			Duration: 7 * time.Minute,
			Distance: maps.Distance{HumanReadable: "2.1 mi", Meters: 3380},
		}},
	}}}
	s := &RouteService{client: stub, language: "en", region: "us"}

	d, dist, err := s.TravelEstimate(context.Background(), "37.7749,-122.4194", "1 Market St")
	if err != nil {
		t.Fatalf("TravelEstimate() error: %v", err)
	}
	if d != 7*time.Minute || dist != "2.1 mi" {
		t.Fatalf("got %v %q", d, dist)
	}
	if stub.got.Mode != maps.TravelModeDriving || stub.got.Language != "en" || stub.got.Region != "us" {
		t.Fatalf("unexpected request: %+v", stub.got)
	}
}

func TestTravelEstimateNoRoute(t *testing.T) {
	s := &RouteService{client: &stubDirections{}}
	if _, _, err := s.TravelEstimate(context.Background(), "a", "b"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestTravelEstimateClientError(t *testing.T) {
	boom := errors.New("quota")
	s := &RouteService{client: &stubDirections{err: boom}}
	if _, _, err := s.TravelEstimate(context.Background(), "a", "b"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped quota error", err)
	}
}
