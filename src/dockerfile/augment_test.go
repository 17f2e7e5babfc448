package dockerfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassio-addons/build-env/src/config"
)

func labelConfig() *config.BuildConfig {
	return &config.BuildConfig{
		Name:        "Example",
		Description: "An example add-on",
		URL:         "https://addons.community",
		GitURL:      "https://github.com/example/addon",
		DocURL:      "https://addons.community/docs",
		Vendor:      "Community Add-ons",
		Maintainer:  "Jane <jane@example.com>",
		BuildRef:    "abc1234",
		BuildType:   "addon",
		Version:     "1.2.3",
	}
}

func mustRead(t *testing.T, content string) *Dockerfile {
	t.Helper()
	d, err := Read(writeDockerfile(t, content))
	require.NoError(t, err)
	return d
}

func TestAugmentAppendsArgsAndSingleLabel(t *testing.T) {
	d := mustRead(t, "FROM alpine:3.20\nRUN true\n")
	out := d.Augment(labelConfig())

	assert.True(t, strings.HasPrefix(out, "FROM alpine:3.20\nRUN true\n"), "original text preserved")
	assert.Contains(t, out, "ARG BUILD_DATE\n")
	assert.Contains(t, out, "ARG BUILD_ARCH\n")
	assert.Equal(t, 1, strings.Count(out, "LABEL"), "exactly one trailing LABEL instruction")

	assert.Contains(t, out, `org.label-schema.schema-version="1.0"`)
	assert.Contains(t, out, "org.label-schema.build-date=${BUILD_DATE}")
	assert.Contains(t, out, `org.label-schema.name="Example"`)
	assert.Contains(t, out, `org.label-schema.vcs-ref="abc1234"`)
	assert.Contains(t, out, `maintainer="Jane <jane@example.com>"`)
	assert.Contains(t, out, `io.hass.type="addon"`)
	assert.Contains(t, out, `io.hass.version="1.2.3"`)
	assert.Contains(t, out, "io.hass.arch=${BUILD_ARCH}")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestAugmentDeterministic(t *testing.T) {
	d := mustRead(t, "FROM alpine:3.20\n")
	cfg := labelConfig()
	assert.Equal(t, d.Augment(cfg), d.Augment(cfg))
}

func TestAugmentSkipsEmptyValues(t *testing.T) {
	d := mustRead(t, "FROM alpine:3.20\n")
	cfg := labelConfig()
	cfg.Description = ""
	cfg.DocURL = ""

	out := d.Augment(cfg)
	assert.NotContains(t, out, "org.label-schema.description")
	assert.NotContains(t, out, "org.label-schema.usage")
}

func TestAugmentRespectsExistingLabels(t *testing.T) {
	d := mustRead(t, `FROM alpine:3.20
LABEL io.hass.type="base" maintainer="Someone Else"
`)
	out := d.Augment(labelConfig())

	// Existing declarations win; only one LABEL is appended on top.
	assert.NotContains(t, out, `io.hass.type="addon"`)
	assert.NotContains(t, out, `maintainer="Jane <jane@example.com>"`)
	assert.Contains(t, out, `io.hass.version="1.2.3"`)
}

func TestAugmentOverrideLabels(t *testing.T) {
	d := mustRead(t, `FROM alpine:3.20
LABEL io.hass.type="base"
`)
	cfg := labelConfig()
	cfg.LabelOverride = true

	out := d.Augment(cfg)
	assert.Contains(t, out, `io.hass.type="addon"`)
}

func TestAugmentReusesDeclaredArgs(t *testing.T) {
	d := mustRead(t, "ARG BUILD_ARCH\nFROM alpine:3.20\n")
	out := d.Augment(labelConfig())

	assert.Equal(t, 1, strings.Count(out, "ARG BUILD_ARCH"), "declared ARG is not redeclared")
	assert.Contains(t, out, "ARG BUILD_DATE\n")
}

func TestAugmentedArgs(t *testing.T) {
	d := mustRead(t, `ARG BUILD_FROM=alpine:3.20
FROM ${BUILD_FROM}
ARG TEMPIO_VERSION
`)
	args := d.AugmentedArgs(labelConfig())

	assert.Contains(t, args, "BUILD_DATE")
	assert.Contains(t, args, "BUILD_ARCH")
	assert.Contains(t, args, "BUILD_FROM")
	assert.Contains(t, args, "TEMPIO_VERSION")
}

func TestAugmentedArgsMatchAugmentedText(t *testing.T) {
	// When the build-time labels already exist and override is off,
	// Augment appends neither label nor ARG, so the argument list must
	// not report those names either.
	d := mustRead(t, `FROM alpine:3.20
LABEL org.label-schema.build-date="2026-01-01" io.hass.arch="amd64"
`)
	cfg := labelConfig()

	out := d.Augment(cfg)
	assert.NotContains(t, out, "ARG BUILD_DATE")
	assert.NotContains(t, out, "ARG BUILD_ARCH")

	args := d.AugmentedArgs(cfg)
	assert.NotContains(t, args, "BUILD_DATE")
	assert.NotContains(t, args, "BUILD_ARCH")

	// With override the labels are re-emitted and the ARGs come back.
	cfg.LabelOverride = true
	assert.Contains(t, d.AugmentedArgs(cfg), "BUILD_DATE")
	assert.Contains(t, d.AugmentedArgs(cfg), "BUILD_ARCH")
}
