package document

import (
	"bytes"
	"encoding/json"
	"time"
)

// ComponentType names one of the closed set of building blocks.
type ComponentType string

const (
	TypeHero        ComponentType = "hero"
	TypeNavbar      ComponentType = "navbar"
	TypeText        ComponentType = "text"
	TypeImage       ComponentType = "image"
	TypeButton      ComponentType = "button"
	TypeCard        ComponentType = "card"
	TypeTestimonial ComponentType = "testimonial"
	TypeFeature     ComponentType = "feature"
	TypePricing     ComponentType = "pricing"
	TypeForm        ComponentType = "form"
	TypeFooter      ComponentType = "footer"
	TypeContainer   ComponentType = "container"
)

var componentTypes = []ComponentType{
	TypeHero, TypeNavbar, TypeText, TypeImage, TypeButton, TypeCard,
	TypeTestimonial, TypeFeature, TypePricing, TypeForm, TypeFooter, TypeContainer,
}

// ComponentTypes returns the closed type set in palette order.
func ComponentTypes() []ComponentType {
	out := make([]ComponentType, len(componentTypes))
	copy(out, componentTypes)
	return out
}

// Valid reports whether t belongs to the closed type set.
func (t ComponentType) Valid() bool {
	for _, known := range componentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Bag is an untyped property or style map. Numbers decode as json.Number so
// values keep their exact textual form across round trips.
type Bag map[string]any

func (b *Bag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*b = m
	return nil
}

// Clone deep-copies the bag.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Bag:
		return t.Clone()
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Component is a node in a page's component tree.
type Component struct {
	ID       string        `json:"id"`
	Type     ComponentType `json:"type"`
	Props    Bag           `json:"props"`
	Styles   Bag           `json:"styles"`
	Position Position      `json:"position"`
	Size     Size          `json:"size"`
	Children []Component   `json:"children"`
}

// Provider identifies the identity provider a user signed in with.
type Provider string

const (
	ProviderGoogle  Provider = "google"
	ProviderGitHub  Provider = "github"
	ProviderDiscord Provider = "discord"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub, ProviderDiscord:
		return true
	}
	return false
}

// Tier is a user's subscription plan.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar,omitempty"`
	Provider     Provider  `json:"provider"`
	Subscription Tier      `json:"subscription"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Revision     int64     `json:"revision"`
}

// Project is a named container of pages owned by one user.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Theme       Theme     `json:"theme"`
	Published   bool      `json:"published"`
	Domain      string    `json:"domain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Revision    int64     `json:"revision"`
}

type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	OGImage     string   `json:"og_image,omitempty"`
	Canonical   string   `json:"canonical,omitempty"`
}

// Page belongs to a project. Components render in slice order.
type Page struct {
	ID         string      `json:"id"`
	ProjectID  string      `json:"project_id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Components []Component `json:"components"`
	SEO        SEO         `json:"seo"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Revision   int64       `json:"revision"`
}

// ProjectDraft is the input for creating a project.
type ProjectDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Theme       *Theme `json:"theme,omitempty"`
	Published   bool   `json:"published"`
	Domain      string `json:"domain,omitempty"`
}

// PageDraft is the input for creating a page.
type PageDraft struct {
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Components []Component `json:"components"`
	SEO        SEO         `json:"seo"`
}

// ProjectPatch carries the fields of a partial project update.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *Theme  `json:"theme,omitempty"`
	Published   *bool   `json:"published,omitempty"`
	Domain      *string `json:"domain,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Theme == nil && p.Published == nil && p.Domain == nil
}

// Apply returns proj with the patch applied.
func (p ProjectPatch) Apply(proj Project) Project {
	if p.Name != nil {
		proj.Name = *p.Name
	}
	if p.Description != nil {
		proj.Description = *p.Description
	}
	if p.Theme != nil {
		proj.Theme = *p.Theme
	}
	if p.Published != nil {
		proj.Published = *p.Published
	}
	if p.Domain != nil {
		proj.Domain = *p.Domain
	}
	return proj
}

// PagePatch carries the fields of a partial page update.
type PagePatch struct {
	Name       *string      `json:"name,omitempty"`
	Slug       *string      `json:"slug,omitempty"`
	Components *[]Component `json:"components,omitempty"`
	SEO        *SEO         `json:"seo,omitempty"`
}

func (p PagePatch) IsEmpty() bool {
	return p.Name == nil && p.Slug == nil && p.Components == nil && p.SEO == nil
}

// Apply returns page with the patch applied.
func (p PagePatch) Apply(page Page) Page {
	if p.Name != nil {
		page.Name = *p.Name
	}
	if p.Slug != nil {
		page.Slug = *p.Slug
	}
	if p.Components != nil {
		page.Components = CloneComponents(*p.Components)
	}
	if p.SEO != nil {
		page.SEO = *p.SEO
	}
	return page
}

// UserPatch carries the fields of a profile update.
type UserPatch struct {
	Email        *string
	Name         *string
	Avatar       *string
	Subscription *Tier
}

func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.Name == nil && p.Avatar == nil && p.Subscription == nil
}

// Now returns the current time in the canonical UTC microsecond form used
// throughout the model.
func Now() time.Time {
	return CanonicalTime(time.Now())
}

// CanonicalTime normalizes t to UTC with microsecond precision.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
