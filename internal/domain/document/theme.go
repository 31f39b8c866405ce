package document

type ThemeColors struct {
	Primary       string `json:"primary"`
	Secondary     string `json:"secondary"`
	Accent        string `json:"accent"`
	Background    string `json:"background"`
	Surface       string `json:"surface"`
	Text          string `json:"text"`
	TextSecondary string `json:"text_secondary"`
}

type ThemeFonts struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type SpacingScale struct {
	XS string `json:"xs"`
	SM string `json:"sm"`
	MD string `json:"md"`
	LG string `json:"lg"`
	XL string `json:"xl"`
}

type RadiusScale struct {
	SM string `json:"sm"`
	MD string `json:"md"`
	LG string `json:"lg"`
}

type ShadowScale struct {
	SM string `json:"sm"`
	MD string `json:"md"`
	LG string `json:"lg"`
}

// Theme is a plain value; copying it never shares state.
type Theme struct {
	Colors       ThemeColors  `json:"colors"`
	Fonts        ThemeFonts   `json:"fonts"`
	Spacing      SpacingScale `json:"spacing"`
	BorderRadius RadiusScale  `json:"border_radius"`
	Shadows      ShadowScale  `json:"shadows"`
	DarkMode     bool         `json:"dark_mode"`
}

// DefaultTheme returns the theme new projects start with.
func DefaultTheme() Theme {
	return Theme{
		Colors: ThemeColors{
			Primary:       "#ffffff",
			Secondary:     "#000000",
			Accent:        "#6366f1",
			Background:    "#000000",
			Surface:       "#1f1f1f",
			Text:          "#ffffff",
			TextSecondary: "#a1a1aa",
		},
		Fonts: ThemeFonts{
			Heading: "Cal Sans",
			Body:    "Inter",
		},
		Spacing: SpacingScale{
			XS: "0.5rem",
			SM: "1rem",
			MD: "1.5rem",
			LG: "2rem",
			XL: "3rem",
		},
		BorderRadius: RadiusScale{
			SM: "0.25rem",
			MD: "0.5rem",
			LG: "1rem",
		},
		Shadows: ShadowScale{
			SM: "0 1px 2px 0 rgb(255 255 255 / 0.05)",
			MD: "0 4px 6px -1px rgb(255 255 255 / 0.1)",
			LG: "0 10px 15px -3px rgb(255 255 255 / 0.1)",
		},
		DarkMode: false,
	}
}
