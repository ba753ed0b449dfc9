package types

import "strings"

// TagCatalog maps symbolic tag names to their string form. The catalog is
// injected by the embedding application so reserved tags can be renamed
// without touching the engine.
type TagCatalog struct {
	// Ignore is the reserved tag attached to ignored registrations. Tests
	// carrying it report a TestIgnored event instead of running when it is
	// present in the exclude set.
	Ignore string
}

// DefaultCatalog is the tag catalog used when none is injected.
func DefaultCatalog() TagCatalog {
	return TagCatalog{Ignore: "ignore"}
}

// ValidateTags rejects tag lists containing a null/empty entry, regardless
// of position.
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return &NullTagError{}
		}
	}
	return nil
}

// TagSet is a membership set over tag strings.
type TagSet map[string]struct{}

// NewTagSet builds a set from a list; nil input yields a nil set, which
// callers treat as "absent" rather than "empty".
func NewTagSet(tags []string) TagSet {
	if tags == nil {
		return nil
	}
	set := make(TagSet, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Intersects reports whether any of the given tags is in the set.
func (s TagSet) Intersects(tags []string) bool {
	for _, tag := range tags {
		if s.Has(tag) {
			return true
		}
	}
	return false
}
