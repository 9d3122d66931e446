package telemetry

import (
	"regexp"
	"strings"
)

var (
	uuidLikeSegment  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	numericSegment   = regexp.MustCompile(`^[0-9]+$`)
	longSlugSegment  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{15,}$`)
)

// collapseDynamicSegments is the fallback route-template normalizer used
// when no matched chi route pattern is available: it replaces UUID-like,
// purely numeric, and long lowercase-slug path segments with ":id" so that
// per-instance identifiers never leak into a telemetry label (spec §8.9 —
// route labels must never contain UUID-like or numeric-id segments).
func collapseDynamicSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
			continue
		case uuidLikeSegment.MatchString(seg):
			segments[i] = ":id"
		case numericSegment.MatchString(seg):
			segments[i] = ":id"
		case longSlugSegment.MatchString(seg):
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
