package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/pagesmith/internal/domain/document"
)

// TypePolicy decides what happens to a generated component whose type is
// outside the closed component set.
type TypePolicy int

const (
	// DropUnknown drops the entry and reports it in Result.Dropped.
	DropUnknown TypePolicy = iota
	// RejectUnknown rejects the whole response.
	RejectUnknown
)

// UnknownTypePolicy is the policy used by Ingest.
const UnknownTypePolicy = DropUnknown

var (
	fallbackPosition = document.Position{X: 0, Y: 0}
	fallbackSize     = document.Size{Width: 100, Height: 300}
)

// DroppedComponent reports a generated component that was not accepted.
type DroppedComponent struct {
	Path   string `json:"path"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason"`
}

// Result is a validated generation, ready to be submitted as a project and
// page creation.
type Result struct {
	Project document.ProjectDraft `json:"project"`
	Page    document.PageDraft    `json:"page"`
	Dropped []DroppedComponent    `json:"dropped,omitempty"`
}

// Ingester converts untrusted generation output into document drafts.
type Ingester struct {
	Policy TypePolicy
}

// Ingest validates raw with UnknownTypePolicy.
func Ingest(raw []byte) (*Result, error) {
	return Ingester{Policy: UnknownTypePolicy}.Ingest(raw)
}

type object map[string]json.RawMessage

// decodeObject decodes raw as a JSON object. JSON null and non-objects fail.
func decodeObject(raw json.RawMessage) (object, bool) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func (o object) present(key string) bool {
	raw, ok := o[key]
	return ok && !isNull(raw)
}

func (o object) str(keys ...string) (string, bool) {
	for _, key := range keys {
		raw, ok := o[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// stripFences removes a surrounding markdown code fence.
func stripFences(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	} else {
		trimmed = trimmed[3:]
	}
	trimmed = bytes.TrimSpace(trimmed)
	trimmed = bytes.TrimSuffix(trimmed, []byte("```"))
	return bytes.TrimSpace(trimmed)
}

// Ingest validates raw and converts it to drafts. Any structural failure
// returns ErrGenerationInvalid and no partial result.
func (in Ingester) Ingest(raw []byte) (*Result, error) {
	top, ok := decodeObject(stripFences(raw))
	if !ok {
		return nil, invalid("response is not a JSON object")
	}

	page, err := parsePage(top)
	if err != nil {
		return nil, err
	}

	var dropped []DroppedComponent
	components := []document.Component{}
	if top.present("components") {
		var entries []json.RawMessage
		if err := json.Unmarshal(top["components"], &entries); err != nil {
			return nil, invalid("components must be an array")
		}
		components, dropped, err = in.parseComponents(entries, "components")
		if err != nil {
			return nil, err
		}
	}
	if err := document.ValidateTree(components); err != nil {
		return nil, invalid("%v", err)
	}
	page.Components = components

	theme, err := parseTheme(top)
	if err != nil {
		return nil, err
	}

	return &Result{
		Project: document.ProjectDraft{
			Name:        page.Name,
			Description: page.SEO.Description,
			Theme:       &theme,
		},
		Page:    page,
		Dropped: dropped,
	}, nil
}

func parsePage(top object) (document.PageDraft, error) {
	if !top.present("page") {
		return document.PageDraft{}, invalid("page is required")
	}
	page, ok := decodeObject(top["page"])
	if !ok {
		return document.PageDraft{}, invalid("page must be an object")
	}
	name, _ := page.str("name")
	name = strings.TrimSpace(name)
	if name == "" {
		return document.PageDraft{}, invalid("page.name must be a non-empty string")
	}

	slug, _ := page.str("slug")
	slug = strings.TrimSpace(slug)
	switch {
	case slug == "":
		slug = document.Slugify(name)
	case !document.ValidSlug(slug):
		slug = document.Slugify(slug)
	}

	seo := document.SEO{Title: name, Keywords: []string{}}
	if page.present("seo") {
		fields, ok := decodeObject(page["seo"])
		if !ok {
			return document.PageDraft{}, invalid("page.seo must be an object")
		}
		if title, ok := fields.str("title"); ok && strings.TrimSpace(title) != "" {
			seo.Title = title
		}
		seo.Description, _ = fields.str("description")
		seo.Keywords = parseKeywords(fields["keywords"])
		seo.OGImage, _ = fields.str("ogImage", "og_image")
		seo.Canonical, _ = fields.str("canonical")
	}

	return document.PageDraft{Name: name, Slug: slug, SEO: seo}, nil
}

// parseKeywords accepts an array of strings or a comma separated string.
func parseKeywords(raw json.RawMessage) []string {
	keywords := []string{}
	if isNull(raw) {
		return keywords
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				keywords = append(keywords, strings.TrimSpace(s))
			}
		}
		return keywords
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		for _, s := range strings.Split(joined, ",") {
			if s = strings.TrimSpace(s); s != "" {
				keywords = append(keywords, s)
			}
		}
	}
	return keywords
}

// parsed is the outcome of decoding one generated component: either an
// accepted component or a dropped one.
type parsed interface {
	parsed()
}

type acceptedComponent struct {
	component document.Component
	dropped   []DroppedComponent // from nested children
}

type rejectedComponent struct {
	DroppedComponent
	unknownType bool
}

func (acceptedComponent) parsed() {}
func (rejectedComponent) parsed() {}

func (in Ingester) parseComponents(entries []json.RawMessage, path string) ([]document.Component, []DroppedComponent, error) {
	components := make([]document.Component, 0, len(entries))
	var dropped []DroppedComponent
	for i, entry := range entries {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		switch v := in.parseComponent(entry, entryPath).(type) {
		case acceptedComponent:
			components = append(components, v.component)
			dropped = append(dropped, v.dropped...)
		case rejectedComponent:
			if v.unknownType && in.Policy == RejectUnknown {
				return nil, nil, invalid("%s: unknown component type %q", entryPath, v.Type)
			}
			dropped = append(dropped, v.DroppedComponent)
		case nestedFailure:
			return nil, nil, v.err
		}
	}
	return components, dropped, nil
}

type nestedFailure struct {
	err error
}

func (nestedFailure) parsed() {}

func (in Ingester) parseComponent(raw json.RawMessage, path string) parsed {
	reject := func(typ, reason string) parsed {
		return rejectedComponent{DroppedComponent: DroppedComponent{Path: path, Type: typ, Reason: reason}}
	}

	fields, ok := decodeObject(raw)
	if !ok {
		return reject("", "component is not an object")
	}
	typeName, ok := fields.str("type")
	if !ok || strings.TrimSpace(typeName) == "" {
		return reject("", "component type is missing")
	}
	typ := document.ComponentType(strings.TrimSpace(typeName))
	if !typ.Valid() {
		return rejectedComponent{
			DroppedComponent: DroppedComponent{Path: path, Type: typeName, Reason: "unknown component type"},
			unknownType:      true,
		}
	}

	props, ok := decodeBag(fields["props"])
	if !ok {
		return reject(typeName, "props must be an object")
	}
	styles, ok := decodeBag(fields["styles"])
	if !ok {
		return reject(typeName, "styles must be an object")
	}

	component := document.Component{
		ID:       uuid.NewString(),
		Type:     typ,
		Props:    props,
		Styles:   styles,
		Position: fallbackPosition,
		Size:     fallbackSize,
	}
	if x, y, ok := numberPair(fields["position"], "x", "y"); ok {
		component.Position = document.Position{X: x, Y: y}
	}
	if w, h, ok := numberPair(fields["size"], "width", "height"); ok {
		component.Size = document.Size{Width: w, Height: h}
	}

	if fields.present("children") {
		var entries []json.RawMessage
		if err := json.Unmarshal(fields["children"], &entries); err != nil {
			return reject(typeName, "children must be an array")
		}
		children, dropped, err := in.parseComponents(entries, path+".children")
		if err != nil {
			return nestedFailure{err: err}
		}
		component.Children = children
		return acceptedComponent{component: component, dropped: dropped}
	}
	return acceptedComponent{component: component}
}

// decodeBag decodes an optional JSON object. Absent and null give an empty bag.
func decodeBag(raw json.RawMessage) (document.Bag, bool) {
	if isNull(raw) {
		return document.Bag{}, true
	}
	if _, ok := decodeObject(raw); !ok {
		return nil, false
	}
	var bag document.Bag
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, false
	}
	return bag, true
}

// numberPair reads two numeric fields from a JSON object. Both must be
// present and numeric.
func numberPair(raw json.RawMessage, a, b string) (float64, float64, bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return 0, 0, false
	}
	var first, second float64
	if err := json.Unmarshal(fields[a], &first); err != nil || isNull(fields[a]) {
		return 0, 0, false
	}
	if err := json.Unmarshal(fields[b], &second); err != nil || isNull(fields[b]) {
		return 0, 0, false
	}
	return first, second, true
}
