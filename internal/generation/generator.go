package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

const noCopyFallback = "Generated content not available"

// Generator runs prompts through a TextGenerator and ingests the responses.
type Generator struct {
	text     TextGenerator
	ingester Ingester
	logger   *slog.Logger
}

// NewGenerator creates a Generator using UnknownTypePolicy.
func NewGenerator(text TextGenerator, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		text:     text,
		ingester: Ingester{Policy: UnknownTypePolicy},
		logger:   logger,
	}
}

// GenerateSite asks the service for a site and validates the result. The
// request description becomes the project description.
func (g *Generator) GenerateSite(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, document.Invalid("description", document.ErrInvalidInput, "description is required")
	}
	raw, err := g.text.Generate(ctx, BuildSitePrompt(req), FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("generating site: %w", err)
	}
	result, err := g.ingester.Ingest([]byte(raw))
	if err != nil {
		g.logger.Warn("generation rejected", slog.String("error", err.Error()))
		return nil, err
	}
	result.Project.Description = req.Description
	if len(result.Dropped) > 0 {
		g.logger.Info("generation dropped components",
			slog.Int("dropped", len(result.Dropped)),
			slog.Int("accepted", len(result.Page.Components)),
		)
	}
	return result, nil
}

// EnhanceComponent asks the service to rework c per instructions.
func (g *Generator) EnhanceComponent(ctx context.Context, c document.Component, instructions string) (document.Component, error) {
	if strings.TrimSpace(instructions) == "" {
		return document.Component{}, document.Invalid("instructions", document.ErrInvalidInput, "instructions are required")
	}
	raw, err := g.text.Generate(ctx, BuildEnhancePrompt(c, instructions), FormatJSON)
	if err != nil {
		return document.Component{}, fmt.Errorf("enhancing component: %w", err)
	}
	return MergeEnhancement(c, []byte(raw))
}

// GenerateCopy returns a block of plain website text.
func (g *Generator) GenerateCopy(ctx context.Context, contentType, brief string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", document.Invalid("content_type", document.ErrInvalidInput, "content type is required")
	}
	text, err := g.text.Generate(ctx, BuildCopyPrompt(contentType, brief), FormatText)
	if err != nil {
		return "", fmt.Errorf("generating copy: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return noCopyFallback, nil
	}
	return strings.TrimSpace(text), nil
}
