package dockerfile

import (
	"fmt"
	"strings"

	"github.com/hassio-addons/build-env/src/config"
)

// metaLabel is one entry of the fixed recognized label enumeration.
// Labels whose value is only known at build time reference an ARG
// instead of a literal.
type metaLabel struct {
	key string
	arg string // build-time ARG the value comes from, empty for literals
}

// metaLabels is the fixed enumeration, in stable output order.
var metaLabels = []metaLabel{
	{key: "org.label-schema.schema-version"},
	{key: "org.label-schema.build-date", arg: "BUILD_DATE"},
	{key: "org.label-schema.name"},
	{key: "org.label-schema.description"},
	{key: "org.label-schema.url"},
	{key: "org.label-schema.vcs-url"},
	{key: "org.label-schema.vcs-ref"},
	{key: "org.label-schema.vendor"},
	{key: "org.label-schema.usage"},
	{key: "maintainer"},
	{key: "io.hass.type"},
	{key: "io.hass.version"},
	{key: "io.hass.arch", arg: "BUILD_ARCH"},
}

// Augment produces the augmented Dockerfile text: the original text,
// any ARG declarations the build-time labels need, and one trailing
// LABEL instruction carrying the metadata entries. A label already
// declared in the file is left alone unless the override flag is set.
// Output is deterministic for identical input.
func (d *Dockerfile) Augment(cfg *config.BuildConfig) string {
	entries, neededArgs := d.metaEntries(cfg)

	text := d.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	var b strings.Builder
	b.WriteString(text)
	for _, a := range neededArgs {
		fmt.Fprintf(&b, "ARG %s\n", a)
	}
	if len(entries) > 0 {
		b.WriteString("LABEL \\\n")
		for i, e := range entries {
			b.WriteString("    " + e)
			if i < len(entries)-1 {
				b.WriteString(" \\")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// metaEntries computes the LABEL entries the augmentation will append
// and the ARG declarations those entries need. Labels already declared
// in the file are skipped unless the override flag is set, and a
// skipped build-time label needs no ARG either.
func (d *Dockerfile) metaEntries(cfg *config.BuildConfig) (entries, neededArgs []string) {
	for _, ml := range metaLabels {
		if !cfg.LabelOverride && d.HasLabel(ml.key) {
			continue
		}

		if ml.arg != "" {
			// Build-time value: reference the ARG, declaring it first
			// when the file doesn't already.
			if !d.HasArg(ml.arg) && !contains(neededArgs, ml.arg) {
				neededArgs = append(neededArgs, ml.arg)
			}
			entries = append(entries, fmt.Sprintf("%s=${%s}", ml.key, ml.arg))
			continue
		}

		value := d.labelValue(ml.key, cfg)
		if value == "" {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s=%q", ml.key, value))
	}
	return entries, neededArgs
}

// AugmentedArgs returns the ARG names the augmented text declares or
// inherits, so the build passes values for exactly those and docker
// never sees an argument no ARG consumes.
func (d *Dockerfile) AugmentedArgs(cfg *config.BuildConfig) []string {
	_, args := d.metaEntries(cfg)
	for name := range d.Args {
		if !contains(args, name) {
			args = append(args, name)
		}
	}
	return args
}

// labelValue maps a label key to its resolved configuration value.
func (d *Dockerfile) labelValue(key string, cfg *config.BuildConfig) string {
	switch key {
	case "org.label-schema.schema-version":
		return "1.0"
	case "org.label-schema.name":
		return cfg.Name
	case "org.label-schema.description":
		return cfg.Description
	case "org.label-schema.url":
		return cfg.URL
	case "org.label-schema.vcs-url":
		return cfg.GitURL
	case "org.label-schema.vcs-ref":
		return cfg.BuildRef
	case "org.label-schema.vendor":
		return cfg.Vendor
	case "org.label-schema.usage":
		return cfg.DocURL
	case "maintainer":
		return cfg.Maintainer
	case "io.hass.type":
		return cfg.BuildType
	case "io.hass.version":
		return cfg.Version
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
