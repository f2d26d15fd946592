package extract

import (
	"regexp"
	"strings"
)

// UnknownLocation is reported when the address names no recognizable place.
const UnknownLocation = "Unknown"

var cityBeforePOBox = regexp.MustCompile(`([A-Za-z\s]+),\s*P\.O\.\s*Box`)

type regionMatcher struct {
	name    string
	pattern *regexp.Regexp
}

// LocationResolver infers a normalized location from a free-text address.
type LocationResolver struct {
	regions  []regionMatcher
	stoplist map[string]struct{}
}

// NewLocationResolver builds a resolver that tries regions in the given order.
func NewLocationResolver(regions, stoplist []string) *LocationResolver {
	r := &LocationResolver{stoplist: make(map[string]struct{}, len(stoplist))}
	for _, name := range regions {
		r.regions = append(r.regions, regionMatcher{
			name:    name,
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	for _, s := range stoplist {
		r.stoplist[strings.ToLower(s)] = struct{}{}
	}
	return r
}

// Resolve returns the first region named in the address, else the city written
// before a "P.O. Box", else UnknownLocation.
func (r *LocationResolver) Resolve(address *string) string {
	if address == nil || *address == "" {
		return UnknownLocation
	}
	for _, reg := range r.regions {
		if reg.pattern.MatchString(*address) {
			return reg.name
		}
	}
	if m := cityBeforePOBox.FindStringSubmatch(*address); m != nil {
		city := strings.TrimSpace(m[1])
		if _, stop := r.stoplist[strings.ToLower(city)]; len(city) > 3 && !stop {
			return city
		}
	}
	return UnknownLocation
}
