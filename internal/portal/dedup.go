package portal

import "github.com/example/class-booker/internal/calendar"

// artifactOffset is the distance between a session's start anchor and the
// duplicate anchor the portal renders at its end boundary.
const artifactOffset = 60

// Dedupe removes render duplicates from detections, preserving order:
//   - repeated (date, start) pairs collapse to the first one;
//   - an entry starting exactly artifactOffset minutes after another entry on
//     the same date is dropped when both carry the same session signature, or
//     when either has no label to compare.
//
// Sessions an hour apart whose labels differ (another instructor, another
// occupancy) are kept.
func Dedupe(detections []Detection) []Detection {
	type key struct {
		date  calendar.Date
		start string
	}
	unique := make([]Detection, 0, len(detections))
	seen := make(map[key]struct{}, len(detections))
	for _, d := range detections {
		k := key{d.Date, d.Start}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, d)
	}

	out := make([]Detection, 0, len(unique))
	for _, d := range unique {
		if !isArtifact(d, unique) {
			out = append(out, d)
		}
	}
	return out
}

func isArtifact(d Detection, all []Detection) bool {
	start, err := calendar.Minutes(d.Start)
	if err != nil {
		return false
	}
	for _, other := range all {
		if other.Date != d.Date {
			continue
		}
		earlier, err := calendar.Minutes(other.Start)
		if err != nil || start-earlier != artifactOffset {
			continue
		}
		if d.Label == "" || other.Label == "" || signature(d.Label) == signature(other.Label) {
			return true
		}
	}
	return false
}
