package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ThemeFonts names the typefaces used by the rendered site.
type ThemeFonts struct {
	Header string `yaml:"header" json:"header"`
	Body   string `yaml:"body" json:"body"`
	Code   string `yaml:"code" json:"code"`
}

// ThemePalette is one color scheme (light or dark).
type ThemePalette struct {
	Light         string `yaml:"light" json:"light"`
	Lightgray     string `yaml:"lightgray" json:"lightgray"`
	Gray          string `yaml:"gray" json:"gray"`
	Darkgray      string `yaml:"darkgray" json:"darkgray"`
	Dark          string `yaml:"dark" json:"dark"`
	Secondary     string `yaml:"secondary" json:"secondary"`
	Tertiary      string `yaml:"tertiary" json:"tertiary"`
	Highlight     string `yaml:"highlight" json:"highlight"`
	TextHighlight string `yaml:"text_highlight" json:"textHighlight"`
}

// ThemeMode pairs the light and dark palettes.
type ThemeMode struct {
	LightMode ThemePalette `yaml:"light_mode" json:"lightMode"`
	DarkMode  ThemePalette `yaml:"dark_mode" json:"darkMode"`
}

// ThemeConfig is the serializable theme description. Its Hash is a cache
// dependency: theme edits bust the page cache even when no content changed.
type ThemeConfig struct {
	FontOrigin string     `yaml:"font_origin" json:"fontOrigin"`
	CDNCaching bool       `yaml:"cdn_caching" json:"cdnCaching"`
	Typography ThemeFonts `yaml:"typography" json:"typography"`
	Colors     ThemeMode  `yaml:"colors" json:"colors"`
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() ThemeConfig {
	return ThemeConfig{
		FontOrigin: "googleFonts",
		CDNCaching: true,
		Typography: ThemeFonts{
			Header: "Schibsted Grotesk",
			Body:   "Source Sans Pro",
			Code:   "IBM Plex Mono",
		},
		Colors: ThemeMode{
			LightMode: ThemePalette{
				Light:         "#faf8f8",
				Lightgray:     "#e5e5e5",
				Gray:          "#b8b8b8",
				Darkgray:      "#4e4e4e",
				Dark:          "#2b2b2b",
				Secondary:     "#284b63",
				Tertiary:      "#84a59d",
				Highlight:     "rgba(143, 159, 169, 0.15)",
				TextHighlight: "#fff23688",
			},
			DarkMode: ThemePalette{
				Light:         "#161618",
				Lightgray:     "#393639",
				Gray:          "#646464",
				Darkgray:      "#d4d4d4",
				Dark:          "#ebebec",
				Secondary:     "#7b97aa",
				Tertiary:      "#84a59d",
				Highlight:     "rgba(143, 159, 169, 0.15)",
				TextHighlight: "#b3aa0288",
			},
		},
	}
}

// Hash returns a stable hex digest of the serialized theme. Struct field
// order keeps the JSON encoding deterministic.
func (t ThemeConfig) Hash() string {
	data, err := json.Marshal(t)
	if err != nil {
		// Theme is plain data; marshal cannot realistically fail.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const (
	defaultSansStack = `system-ui, "Segoe UI", Roboto, Helvetica, Arial, sans-serif, "Apple Color Emoji", "Segoe UI Emoji", "Segoe UI Symbol"`
	defaultMonoStack = `ui-monospace, SFMono-Regular, SF Mono, Menlo, monospace`
)

// CSSVariables renders the :root variable declarations for both color modes.
func (t ThemeConfig) CSSVariables() string {
	l := t.Colors.LightMode
	d := t.Colors.DarkMode
	ty := t.Typography

	return fmt.Sprintf(`
:root {
  --light: %s;
  --lightgray: %s;
  --gray: %s;
  --darkgray: %s;
  --dark: %s;
  --secondary: %s;
  --tertiary: %s;
  --highlight: %s;
  --textHighlight: %s;

  --titleFont: "%s", %s;
  --headerFont: "%s", %s;
  --bodyFont: "%s", %s;
  --codeFont: "%s", %s;
}

:root[saved-theme="dark"] {
  --light: %s;
  --lightgray: %s;
  --gray: %s;
  --darkgray: %s;
  --dark: %s;
  --secondary: %s;
  --tertiary: %s;
  --highlight: %s;
  --textHighlight: %s;
}
`,
		l.Light, l.Lightgray, l.Gray, l.Darkgray, l.Dark, l.Secondary, l.Tertiary, l.Highlight, l.TextHighlight,
		ty.Header, defaultSansStack,
		ty.Header, defaultSansStack,
		ty.Body, defaultSansStack,
		ty.Code, defaultMonoStack,
		d.Light, d.Lightgray, d.Gray, d.Darkgray, d.Dark, d.Secondary, d.Tertiary, d.Highlight, d.TextHighlight,
	)
}
