package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// manifestDoc mirrors the JSON manifest's recognized top-level keys.
// Unknown keys are ignored; missing keys are simply absent from the
// returned Partial.
type manifestDoc struct {
	Version   string            `json:"version"`
	Image     string            `json:"image"`
	Arch      []string          `json:"arch"`
	BuildFrom map[string]string `json:"build_from"`
	Squash    *bool             `json:"squash"`
	Args      map[string]string `json:"args"`
}

// ReadManifest parses the JSON manifest at path into a Partial.
// A missing file yields an empty Partial: the manifest is an optional
// source and absence is not an error.
func ReadManifest(path string) (Partial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Partial{}, nil
		}
		return Partial{}, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Partial{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	return Partial{
		Version:                doc.Version,
		OutputImageTemplate:    doc.Image,
		SupportedArchitectures: doc.Arch,
		BaseImageOverrides:     doc.BuildFrom,
		Squash:                 doc.Squash,
		ExtraBuildArgs:         doc.Args,
	}, nil
}
