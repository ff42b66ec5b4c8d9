// README: Pure geographic helpers: haversine distance, newest fix and distance thinning.
package location

import "math"

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func distanceMeters(a, b Fix) float64 {
	return haversineKm(a.Point.Lat, a.Point.Lng, b.Point.Lat, b.Point.Lng) * 1000
}

// latestFix picks the newest sample of a batch. Hosts do not promise any
// ordering inside a batch; ties keep the later element.
func latestFix(batch []Fix) (Fix, bool) {
	if len(batch) == 0 {
		return Fix{}, false
	}
	best := batch[0]
	for _, f := range batch[1:] {
		if !f.Timestamp.Before(best.Timestamp) {
			best = f
		}
	}
	return best, true
}

// thinByDistance drops fixes closer than minMeters to the previously kept
// fix. last is the fix delivered before this batch, if any.
func thinByDistance(batch []Fix, last *Fix, minMeters float64) []Fix {
	if minMeters <= 0 {
		return batch
	}
	out := batch[:0:0]
	for _, f := range batch {
		if last != nil && distanceMeters(*last, f) < minMeters {
			continue
		}
		out = append(out, f)
		kept := f
		last = &kept
	}
	return out
}
