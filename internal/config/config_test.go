package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "Trellis", cfg.Site.PageTitle)
	require.Contains(t, cfg.Site.IgnorePatterns, "private")
	require.Empty(t, cfg.Path())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
site:
  page_title: Garden
  ignore_patterns: [secret]
paths:
  content_root: notes
  cache_root: out
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Garden", cfg.Site.PageTitle)
	require.Equal(t, []string{"secret"}, cfg.Site.IgnorePatterns)
	require.Equal(t, "notes", cfg.Paths.ContentRoot)
	require.Equal(t, path, cfg.Path())
	// Untouched sections keep defaults.
	require.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_MalformedYAML_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_EventsEnabledWithoutURL_Errors(t *testing.T) {
	cfg := Default()
	cfg.Events.Enabled = true
	require.Error(t, cfg.Validate())

	cfg.Events.URL = "nats://localhost:4222"
	require.NoError(t, cfg.Validate())
}

func TestThemeHash_StableAndSensitive(t *testing.T) {
	a := DefaultTheme()
	b := DefaultTheme()
	require.Equal(t, a.Hash(), b.Hash())

	b.Colors.DarkMode.Secondary = "#123456"
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestCSSVariables_ContainsPaletteAndFonts(t *testing.T) {
	css := DefaultTheme().CSSVariables()
	require.True(t, strings.Contains(css, "--secondary: #284b63"))
	require.True(t, strings.Contains(css, `saved-theme="dark"`))
	require.True(t, strings.Contains(css, "IBM Plex Mono"))
}
