package generation

import (
	"encoding/json"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

// parseTheme overlays the generated theme onto the default theme field by
// field. A missing theme gives the default; a theme that is not an object is
// invalid. Section or field values of the wrong shape keep their defaults.
func parseTheme(top object) (document.Theme, error) {
	theme := document.DefaultTheme()
	if !top.present("theme") {
		return theme, nil
	}
	fields, ok := decodeObject(top["theme"])
	if !ok {
		return theme, invalid("theme must be an object")
	}

	if colors, ok := section(fields, "colors"); ok {
		overlay(colors, []themeField{
			field(&theme.Colors.Primary, "primary"),
			field(&theme.Colors.Secondary, "secondary"),
			field(&theme.Colors.Accent, "accent"),
			field(&theme.Colors.Background, "background"),
			field(&theme.Colors.Surface, "surface"),
			field(&theme.Colors.Text, "text"),
			field(&theme.Colors.TextSecondary, "textSecondary", "text_secondary"),
		})
	}
	if fonts, ok := section(fields, "fonts"); ok {
		overlay(fonts, []themeField{
			field(&theme.Fonts.Heading, "heading"),
			field(&theme.Fonts.Body, "body"),
		})
	}
	if spacing, ok := section(fields, "spacing"); ok {
		overlay(spacing, []themeField{
			field(&theme.Spacing.XS, "xs"),
			field(&theme.Spacing.SM, "sm"),
			field(&theme.Spacing.MD, "md"),
			field(&theme.Spacing.LG, "lg"),
			field(&theme.Spacing.XL, "xl"),
		})
	}
	if radius, ok := section(fields, "borderRadius", "border_radius"); ok {
		overlay(radius, []themeField{
			field(&theme.BorderRadius.SM, "sm"),
			field(&theme.BorderRadius.MD, "md"),
			field(&theme.BorderRadius.LG, "lg"),
		})
	}
	if shadows, ok := section(fields, "shadows"); ok {
		overlay(shadows, []themeField{
			field(&theme.Shadows.SM, "sm"),
			field(&theme.Shadows.MD, "md"),
			field(&theme.Shadows.LG, "lg"),
		})
	}
	for _, key := range []string{"darkMode", "dark_mode"} {
		var dark bool
		if raw, ok := fields[key]; ok && !isNull(raw) && json.Unmarshal(raw, &dark) == nil {
			theme.DarkMode = dark
			break
		}
	}
	return theme, nil
}

func section(fields object, keys ...string) (object, bool) {
	for _, key := range keys {
		if obj, ok := decodeObject(fields[key]); ok {
			return obj, true
		}
	}
	return nil, false
}

// themeField is a theme value and the keys accepted for it, in precedence
// order.
type themeField struct {
	target *string
	keys   []string
}

func field(target *string, keys ...string) themeField {
	return themeField{target: target, keys: keys}
}

// overlay copies non-empty string values from fields into their targets. The
// first key present wins.
func overlay(fields object, targets []themeField) {
	for _, f := range targets {
		for _, key := range f.keys {
			if v, ok := fields.str(key); ok && strings.TrimSpace(v) != "" {
				*f.target = v
				break
			}
		}
	}
}
