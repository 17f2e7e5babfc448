// Package arch provides the fixed enumeration of buildable CPU
// architectures. The registry ships as embedded TOML so the QEMU binfmt
// definitions live next to the platform strings they belong to.
package arch

import (
	_ "embed"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Placeholder is the architecture-substitution marker recognized in
// base-image and output-image templates.
const Placeholder = "{arch}"

// Architecture describes one buildable target.
type Architecture struct {
	Name        string `toml:"name"`     // canonical identifier: "aarch64", "amd64", ...
	GoArch      string `toml:"goarch"`   // runtime.GOARCH equivalent
	Platform    string `toml:"platform"` // docker --platform value
	Qemu        string `toml:"qemu"`     // static emulator binary, empty if never emulated
	BinfmtName  string `toml:"binfmt_name"`
	BinfmtMagic string `toml:"binfmt_magic"`
	BinfmtMask  string `toml:"binfmt_mask"`
}

//go:embed arch.toml
var registryTOML []byte

var registry []Architecture

func init() {
	var doc struct {
		Architectures []Architecture `toml:"architecture"`
	}
	if err := toml.Unmarshal(registryTOML, &doc); err != nil {
		panic(fmt.Sprintf("arch: parsing embedded registry: %v", err))
	}
	registry = doc.Architectures
}

// All returns the registry in its canonical order.
func All() []Architecture {
	out := make([]Architecture, len(registry))
	copy(out, registry)
	return out
}

// Names returns all architecture identifiers in canonical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, a := range registry {
		names = append(names, a.Name)
	}
	return names
}

// Lookup returns the architecture with the given identifier.
func Lookup(name string) (Architecture, bool) {
	for _, a := range registry {
		if a.Name == name {
			return a, true
		}
	}
	return Architecture{}, false
}

// IsValid reports whether name is a recognized architecture identifier.
func IsValid(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Substitute replaces the {arch} placeholder in a template.
func Substitute(template, archName string) string {
	return strings.ReplaceAll(template, Placeholder, archName)
}

// NativeOn reports whether binaries for this architecture run on the
// given host GOARCH without emulation. amd64 hosts execute i386
// directly and arm64 hosts usually retain 32-bit arm support.
func (a Architecture) NativeOn(hostGoArch string) bool {
	if a.GoArch == hostGoArch {
		return true
	}
	switch {
	case a.GoArch == "386" && hostGoArch == "amd64":
		return true
	case a.GoArch == "arm" && hostGoArch == "arm64":
		return true
	}
	return false
}

// RegisterString renders the binfmt_misc registration line for this
// architecture's QEMU handler, with the interpreter at the given path.
func (a Architecture) RegisterString(interpreter string) string {
	return fmt.Sprintf(":%s:M::%s:%s:%s:F", a.BinfmtName, a.BinfmtMagic, a.BinfmtMask, interpreter)
}
