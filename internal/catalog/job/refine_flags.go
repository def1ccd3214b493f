package job

import "strings"

// RefineFlags is a bitset of attributes the caller wants present on every
// app in the result. The refinement engine cascades backend calls until
// each requested flag is satisfied or failed per app.
type RefineFlags uint32

const (
	RefineRequireID RefineFlags = 1 << iota
	RefineRequireName
	RefineRequireDescription
	RefineRequireIcon
	RefineRequireVersion
	RefineRequireSize
	RefineRequireRating
	RefineRequireReviews
	RefineRequireUpdateDetails
	RefineRequireProvenance
	RefineRequireRelated
)

var refineFlagNames = map[RefineFlags]string{
	RefineRequireID:            "require-id",
	RefineRequireName:          "require-name",
	RefineRequireDescription:   "require-description",
	RefineRequireIcon:          "require-icon",
	RefineRequireVersion:       "require-version",
	RefineRequireSize:          "require-size",
	RefineRequireRating:        "require-rating",
	RefineRequireReviews:       "require-reviews",
	RefineRequireUpdateDetails: "require-update-details",
	RefineRequireProvenance:    "require-provenance",
	RefineRequireRelated:       "require-related",
}

// Has reports whether all bits of f are set.
func (r RefineFlags) Has(f RefineFlags) bool {
	return r&f == f
}

// Split returns each individual flag bit set in r.
func (r RefineFlags) Split() []RefineFlags {
	var out []RefineFlags
	for f := RefineRequireID; f <= RefineRequireRelated; f <<= 1 {
		if r&f != 0 {
			out = append(out, f)
		}
	}
	return out
}

func (r RefineFlags) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, f := range r.Split() {
		parts = append(parts, refineFlagNames[f])
	}
	return strings.Join(parts, ",")
}
