package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `pagesmith edits web pages as Projects -> Pages -> Component trees.

Core concepts:
- Project: a named site with a theme (colors, fonts, spacing, radius, shadows, dark mode).
- Page: belongs to a project; has a slug unique within the project and SEO metadata.
- Component: a typed block (hero, navbar, text, image, button, card, testimonial,
  feature, pricing, form, footer, container) with free-form props and styles and
  optional children. Top-level order is render order.

Rules of engagement:
1) sign_in first; every other tool needs a user.
2) list_projects, then open_project to follow a project's pages, or generate_site to
   create one from a description.
3) Edits apply immediately to the working copy and are saved in the background.
   Pass wait=true to block until the save completes. A failed save keeps your edit;
   call retry_writes.
4) get_state shows the open project and page, UI flags and pending writes.
5) render_page returns the component tree in render order.

Docs:
- pagesmith://docs/index
- pagesmith://docs/components
- pagesmith://docs/generation
- pagesmith://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "pagesmith://docs/index",
		Name:        "docs_index",
		Title:       "pagesmith docs index",
		Description: "Entry point: what exists and what to read when.",
		Content: `# pagesmith: Agent Docs Index

## Quick start

1. sign_in with an id, email and provider (google, github or discord).
2. create_project or generate_site.
3. create_page, then add_component / update_component / reorder_components.
4. render_page to check the result.

## Read next

- pagesmith://docs/components for the component model and tree operations.
- pagesmith://docs/generation before calling generate_site or enhance_component.
- pagesmith://docs/errors when a tool returns an error result.
`,
	},
	{
		URI:         "pagesmith://docs/components",
		Name:        "docs_components",
		Title:       "Component model",
		Description: "Component types, trees, ids and ordering.",
		Content: `# Components

A component is {id, type, props, styles, position, size, children}.

- type is one of: hero, navbar, text, image, button, card, testimonial, feature,
  pricing, form, footer, container. Anything else is rejected.
- ids are unique within a page, across the whole tree. Omit id to have one generated.
- props and styles are free-form objects; they are stored as given.
- add_component appends at the top level, or under parent_id when given.
- update_component replaces the component's fields. Omitting children keeps the
  existing children.
- delete_component removes the whole subtree.
- reorder_components takes the complete list of top-level ids in the new order.

## Slugs

Slugs are lowercase letters, digits and single hyphens. A taken slug is suffixed:
home, home-2, home-3.
`,
	},
	{
		URI:         "pagesmith://docs/generation",
		Name:        "docs_generation",
		Title:       "Generation",
		Description: "How generate_site, enhance_component and generate_copy treat model output.",
		Content: `# Generation

generate_site sends the description, industry, style, colors and features to the
generation service and validates what comes back before anything is stored.

- Output that is not a JSON object with a components array fails with
  GENERATION_INVALID and creates nothing.
- Entries with an unknown or missing type, or malformed props or styles, are
  dropped and listed under "dropped".
- Every accepted component gets a fresh id; ids in the output are ignored.
- The output theme is laid over the default theme field by field; fields that are
  missing or of the wrong shape keep their defaults.

enhance_component rewrites props and styles only; the id, type and children of the
component are kept.

generate_copy returns text and stores nothing.
`,
	},
	{
		URI:         "pagesmith://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Error codes returned in tool results and what to do about them.",
		Content: `# Error codes

| code | meaning | what to do |
|---|---|---|
| VALIDATION_FAILED | input rejected; nothing changed | fix the field named in details |
| GENERATION_INVALID | model output unusable; nothing created | retry or rephrase |
| PERSISTENCE_FAILED | the save failed; the edit is kept locally | retry_writes |
| UNAUTHENTICATED | no user signed in | sign_in |
| NOT_FOUND | unknown or foreign id | list_projects / get_state |

With wait=true a failed save is reported in the "write" field of the result
rather than as an error, since the edit itself was applied.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
