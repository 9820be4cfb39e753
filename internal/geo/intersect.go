package geo

// SelfIntersects reports whether any two non-adjacent edges of the ring touch or cross.
// The ring may be open or closed; an open ring is tested as if it were closed.
// Edges are tested in the lng/lat plane, which is exact enough for parcel-sized shapes.
func SelfIntersects(r Ring) bool {
	v := r.Vertices()
	n := len(v)
	if n < 4 {
		return false
	}

	for i := 0; i < n; i++ {
		a1, a2 := v[i], v[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Adjacent edges share a vertex by construction
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := v[j], v[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// CrossesPath reports whether appending next to an open path would make the new segment
// touch or cross one of the path's earlier, non-adjacent segments. Returning to the
// first vertex is not a crossing.
func CrossesPath(path []Coordinate, next Coordinate) bool {
	n := len(path)
	if n < 3 {
		return false
	}
	last := path[n-1]
	start := 0
	// A segment returning to the first vertex meets the first segment there
	if next == path[0] {
		start = 1
	}
	// The segment ending at last is adjacent to the new one and is skipped
	for i := start; i < n-2; i++ {
		if segmentsIntersect(path[i], path[i+1], last, next) {
			return true
		}
	}
	return false
}

// segmentsIntersect reports whether segment p1-p2 and segment p3-p4 share any point.
func segmentsIntersect(p1, p2, p3, p4 Coordinate) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear and touching cases
	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}

// orientation is the cross product of (b-a) and (c-a).
func orientation(a, b, c Coordinate) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

// onSegment reports whether p, known to be collinear with a-b, lies within its bounds.
func onSegment(a, b, p Coordinate) bool {
	return p.Lng >= min(a.Lng, b.Lng) && p.Lng <= max(a.Lng, b.Lng) &&
		p.Lat >= min(a.Lat, b.Lat) && p.Lat <= max(a.Lat, b.Lat)
}
