// Package dockerfile reads a Dockerfile's declared ARG/LABEL inventory
// and appends the standardized metadata labels a build should carry.
// Parsing is regex-based, not a full AST; sufficient for single-stage
// build files, and multi-stage files are rejected outright.
package dockerfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/hassio-addons/build-env/src/config"
	"github.com/hassio-addons/build-env/src/exitcode"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)`)
	// ARG <name>[=<default>]
	argRe = regexp.MustCompile(`(?i)^ARG\s+([A-Za-z_][A-Za-z0-9_]*)(?:=(.*))?$`)
	// LABEL <pairs...>
	labelRe = regexp.MustCompile(`(?i)^LABEL\s+(.+)$`)
	// key="value" | key='value' | key=value
	labelPairRe = regexp.MustCompile(`([\w.:-]+)=("(?:[^"\\]|\\.)*"|'[^']*'|\S+)`)
)

// Dockerfile is a parsed build file: its raw text plus the full
// inventory of declared ARG names and LABEL keys. The inventory covers
// every declaration, recognized or not, for "already present" checks.
type Dockerfile struct {
	Path string
	Text string

	Args   map[string]string // ARG name → declared default ("" if none)
	Labels map[string]string // LABEL key → value (quotes stripped)

	from string // the single base image reference
}

// Read parses the Dockerfile at path. A missing file and a multi-stage
// file are distinct fatal conditions.
func Read(path string) (*Dockerfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exitcode.New(exitcode.NoDockerfile, "no Dockerfile found at %s", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	d := &Dockerfile{
		Path:   path,
		Text:   string(data),
		Args:   map[string]string{},
		Labels: map[string]string{},
	}

	fromCount := 0
	scanner := bufio.NewScanner(strings.NewReader(d.Text))
	var pending string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Join continuation lines so multi-line LABEL blocks parse whole.
		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			continue
		}
		if pending != "" {
			line = pending + line
			pending = ""
		}

		if m := fromRe.FindStringSubmatch(line); m != nil {
			fromCount++
			d.from = m[1]
			continue
		}

		if m := argRe.FindStringSubmatch(line); m != nil {
			d.Args[m[1]] = unquote(strings.TrimSpace(m[2]))
			continue
		}

		if m := labelRe.FindStringSubmatch(line); m != nil {
			for _, pair := range labelPairRe.FindAllStringSubmatch(m[1], -1) {
				d.Labels[pair[1]] = unquote(pair[2])
			}
		}
	}

	switch {
	case fromCount == 0:
		return nil, exitcode.New(exitcode.NoDockerfile, "%s has no FROM instruction", path)
	case fromCount > 1:
		return nil, exitcode.New(exitcode.Multistage, "%s is a multi-stage Dockerfile (%d FROM instructions); only single-stage builds are supported", path, fromCount)
	}

	return d, nil
}

// HasArg reports whether the Dockerfile declares the named ARG.
func (d *Dockerfile) HasArg(name string) bool {
	_, ok := d.Args[name]
	return ok
}

// HasLabel reports whether the Dockerfile declares the label key.
func (d *Dockerfile) HasLabel(key string) bool {
	_, ok := d.Labels[key]
	return ok
}

// From returns the single base image reference.
func (d *Dockerfile) From() string { return d.from }

// Metadata converts recognized ARG defaults and label values into a
// configuration Partial. Unrecognized declarations stay inventory-only.
func (d *Dockerfile) Metadata() config.Partial {
	p := config.Partial{
		BaseImageTemplate: d.Args["BUILD_FROM"],
		Version:           pickNonEmpty(d.Args["BUILD_VERSION"], d.Labels["io.hass.version"]),
		Name:              pickNonEmpty(d.Labels["io.hass.name"], d.Labels["org.label-schema.name"]),
		Description:       pickNonEmpty(d.Labels["io.hass.description"], d.Labels["org.label-schema.description"]),
		URL:               pickNonEmpty(d.Labels["io.hass.url"], d.Labels["org.label-schema.url"]),
		GitURL:            d.Labels["org.label-schema.vcs-url"],
		DocURL:            d.Labels["org.label-schema.usage"],
		Vendor:            d.Labels["org.label-schema.vendor"],
		Maintainer:        d.Labels["maintainer"],
		BuildType:         d.Labels["io.hass.type"],
	}
	return p
}

func pickNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
