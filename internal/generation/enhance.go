package generation

import (
	"github.com/rpggio/pagesmith/internal/domain/document"
)

// MergeEnhancement applies a generated component patch to original. The
// original id, type and children always survive; props and styles are
// replaced when the patch carries objects for them, position and size when
// the patch carries complete numeric values.
func MergeEnhancement(original document.Component, raw []byte) (document.Component, error) {
	fields, ok := decodeObject(stripFences(raw))
	if !ok {
		return document.Component{}, invalid("enhancement is not a JSON object")
	}
	// Some responses wrap the component in a "component" key.
	if inner, ok := decodeObject(fields["component"]); ok && !fields.present("props") {
		fields = inner
	}

	merged := original.Clone()
	if fields.present("props") {
		if props, ok := decodeBag(fields["props"]); ok {
			merged.Props = props
		}
	}
	if fields.present("styles") {
		if styles, ok := decodeBag(fields["styles"]); ok {
			merged.Styles = styles
		}
	}
	if x, y, ok := numberPair(fields["position"], "x", "y"); ok {
		merged.Position = document.Position{X: x, Y: y}
	}
	if w, h, ok := numberPair(fields["size"], "width", "height"); ok {
		merged.Size = document.Size{Width: w, Height: h}
	}
	return merged, nil
}
