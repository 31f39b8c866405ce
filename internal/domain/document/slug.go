package document

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// SlugPolicy decides what happens when a requested slug is already taken.
type SlugPolicy int

const (
	// SlugAutoSuffix appends -2, -3, ... until the slug is free.
	SlugAutoSuffix SlugPolicy = iota
	// SlugReject fails the operation with ErrDuplicateSlug.
	SlugReject
)

// DuplicateSlugPolicy is the policy applied to page slugs.
const DuplicateSlugPolicy = SlugAutoSuffix

const fallbackSlug = "page"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a URL-safe slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify transliterates s to lowercase ASCII and collapses every run of
// other characters to a single hyphen. Names with nothing left become "page".
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range slug.Make(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// UniqueSlug reports whether slug is unused among siblings, ignoring the page
// with excludingPageID.
func UniqueSlug(siblings []Page, slug, excludingPageID string) bool {
	for _, p := range siblings {
		if p.ID == excludingPageID {
			continue
		}
		if p.Slug == slug {
			return false
		}
	}
	return true
}

// ResolveSlug turns a requested slug (or, if empty, the page name) into a
// valid slug that is free among siblings, per DuplicateSlugPolicy.
func ResolveSlug(siblings []Page, requested, name, excludingPageID string) (string, error) {
	slug := strings.TrimSpace(requested)
	if slug == "" {
		slug = Slugify(name)
	}
	if !ValidSlug(slug) {
		return "", Invalid("slug", ErrInvalidSlug, "%q", slug)
	}
	if UniqueSlug(siblings, slug, excludingPageID) {
		return slug, nil
	}
	if DuplicateSlugPolicy == SlugReject {
		return "", Invalid("slug", ErrDuplicateSlug, "%q", slug)
	}
	for n := 2; ; n++ {
		candidate := slug + "-" + strconv.Itoa(n)
		if UniqueSlug(siblings, candidate, excludingPageID) {
			return candidate, nil
		}
	}
}
