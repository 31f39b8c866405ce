package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

// Request describes the site a user wants generated.
type Request struct {
	Description string   `json:"description"`
	Industry    string   `json:"industry,omitempty"`
	Style       string   `json:"style,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Features    []string `json:"features,omitempty"`
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func typeList() string {
	types := document.ComponentTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// BuildSitePrompt renders the prompt for a whole-site generation.
func BuildSitePrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a professional web designer. Design a complete single-page website for this request.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Industry: %s\n", orDefault(req.Industry, "general"))
	fmt.Fprintf(&b, "Style: %s\n", orDefault(req.Style, "modern"))
	fmt.Fprintf(&b, "Preferred colors: %s\n", joinOr(req.Colors, "a modern color scheme"))
	fmt.Fprintf(&b, "Required features: %s\n\n", joinOr(req.Features, "standard features"))
	fmt.Fprintf(&b, "Allowed component types: %s\n\n", typeList())
	b.WriteString(`Respond with one JSON object and nothing else, shaped like:
{
  "page": {"name": "string", "slug": "string", "seo": {"title": "string", "description": "string", "keywords": ["string"]}},
  "components": [
    {
      "type": "one of the allowed component types",
      "props": {"title": "string", "subtitle": "string", "content": "string", "buttonText": "string", "imageUrl": "string"},
      "styles": {"background": "string", "color": "string", "padding": "string", "textAlign": "left|center|right"},
      "position": {"x": 0, "y": 0},
      "size": {"width": 100, "height": 300}
    }
  ],
  "theme": {
    "colors": {"primary": "string", "secondary": "string", "accent": "string", "background": "string", "text": "string"},
    "fonts": {"heading": "string", "body": "string"}
  }
}`)
	return b.String()
}

// BuildEnhancePrompt renders the prompt for editing one component.
func BuildEnhancePrompt(c document.Component, instructions string) string {
	current, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		current = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("Improve this website component according to the instructions.\n\n")
	fmt.Fprintf(&b, "Current component:\n%s\n\n", current)
	fmt.Fprintf(&b, "Instructions: %s\n\n", instructions)
	b.WriteString("Return the improved component as a JSON object with props, styles, position and size. ")
	b.WriteString("Keep the same id and type. Respond with JSON only.")
	return b.String()
}

// BuildCopyPrompt renders the prompt for a block of marketing copy.
func BuildCopyPrompt(contentType, brief string) string {
	return fmt.Sprintf("Write professional %s content for a website.\nContext: %s\n\n"+
		"Keep it engaging and suitable for the web. Return only the text, without formatting or explanations.",
		contentType, brief)
}
