package mcp

import (
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/generation"
)

// WriteParams is embedded by every mutating call. When Wait is set the call
// returns after the durable write completes and reports its failure.
type WriteParams struct {
	Wait bool `json:"wait,omitempty"`
}

type SignInParams struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Avatar   string            `json:"avatar,omitempty"`
	Provider document.Provider `json:"provider"`
}

type IDParams struct {
	ID string `json:"id"`
}

type CreateProjectParams struct {
	WriteParams
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Theme       *document.Theme `json:"theme,omitempty"`
	Published   bool            `json:"published,omitempty"`
	Domain      string          `json:"domain,omitempty"`
}

type UpdateProjectParams struct {
	WriteParams
	ID string `json:"id"`
	document.ProjectPatch
}

type DeleteParams struct {
	WriteParams
	ID string `json:"id"`
}

type CreatePageParams struct {
	WriteParams
	ProjectID  string               `json:"project_id"`
	Name       string               `json:"name"`
	Slug       string               `json:"slug,omitempty"`
	Components []document.Component `json:"components,omitempty"`
	SEO        document.SEO         `json:"seo"`
}

type UpdatePageParams struct {
	WriteParams
	ID string `json:"id"`
	document.PagePatch
}

type AddComponentParams struct {
	WriteParams
	PageID    string             `json:"page_id"`
	ParentID  string             `json:"parent_id,omitempty"`
	Component document.Component `json:"component"`
}

type UpdateComponentParams struct {
	WriteParams
	PageID    string             `json:"page_id"`
	Component document.Component `json:"component"`
}

type DeleteComponentParams struct {
	WriteParams
	PageID      string `json:"page_id"`
	ComponentID string `json:"component_id"`
}

type ReorderComponentsParams struct {
	WriteParams
	PageID string   `json:"page_id"`
	IDs    []string `json:"ids"`
}

type SelectComponentParams struct {
	ComponentID string `json:"component_id"`
}

type RenderPageParams struct {
	PageID string `json:"page_id"`
}

type SetUIParams struct {
	PreviewMode    *bool `json:"preview_mode,omitempty"`
	ToggleDarkMode bool  `json:"toggle_dark_mode,omitempty"`
	ToggleSidebar  bool  `json:"toggle_sidebar,omitempty"`
}

type GenerateSiteParams struct {
	WriteParams
	generation.Request
}

type EnhanceComponentParams struct {
	WriteParams
	PageID       string `json:"page_id"`
	ComponentID  string `json:"component_id"`
	Instructions string `json:"instructions"`
}

type GenerateCopyParams struct {
	ContentType string `json:"content_type"`
	Brief       string `json:"brief,omitempty"`
}

type RecentActivityParams struct {
	ProjectID string `json:"project_id"`
	Limit     int    `json:"limit,omitempty"`
}

// WriteStatus reports the durable state of a mutation's write.
type WriteStatus struct {
	Durable bool      `json:"durable"`
	Error   *APIError `json:"error,omitempty"`
}

type ProjectResponse struct {
	Project document.Project `json:"project"`
	Write   WriteStatus      `json:"write"`
}

type OpenProjectResponse struct {
	Project document.Project `json:"project"`
	Pages   []document.Page  `json:"pages"`
}

type PageResponse struct {
	Page  document.Page `json:"page"`
	Write WriteStatus   `json:"write"`
}

type ComponentResponse struct {
	Component document.Component `json:"component"`
	Write     WriteStatus        `json:"write"`
}

type GeneratedSiteResponse struct {
	editor.GeneratedSite
	Write WriteStatus `json:"write"`
}

type RenderPageResponse struct {
	PageID     string               `json:"page_id"`
	Components []document.Component `json:"components"`
}

type CopyResponse struct {
	Text string `json:"text"`
}

type RetryResponse struct {
	Retried int         `json:"retried"`
	Write   WriteStatus `json:"write"`
}
