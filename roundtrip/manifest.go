package roundtrip

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/cocosip/go-rasterstats/bundle"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

var (
	manifestSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func compileSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal manifest schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add manifest schema resource: %w", err)
			return
		}
		manifestSchema, err = compiler.Compile("manifest.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile manifest schema: %w", err)
		}
	})
	return manifestSchema, compileErr
}

// Manifest lists the reference files of a round-trip suite
type Manifest struct {
	// Inputs is the folder holding the files, relative to the manifest; empty
	// means the manifest's own folder
	Inputs   string         `yaml:"inputs,omitempty"`
	Cases    []Case         `yaml:"cases"`
	Bundles  []BundleCase   `yaml:"bundles,omitempty"`
	Variance []VarianceRule `yaml:"variance,omitempty"`

	dir string
}

// InputDir returns the absolute folder the manifest's files are read from
func (m *Manifest) InputDir() string {
	if filepath.IsAbs(m.Inputs) {
		return m.Inputs
	}
	return filepath.Join(m.dir, m.Inputs)
}

// Tester returns a Tester for the current environment that reads from the
// manifest's inputs and carries its variance rules
func (m *Manifest) Tester(outputDir string) *Tester {
	rt := New(m.InputDir(), outputDir)
	rt.Variance = m.Variance
	return rt
}

// LoadManifest reads and validates the YAML manifest at path
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(abs)
	return m, nil
}

// ParseManifest validates data against the manifest schema and decodes it.
// Relative inputs resolve against the working directory.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := validateManifest(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	for i := range m.Bundles {
		if want, ok := bundle.Normalize(m.Bundles[i].Want).(map[string]any); ok {
			m.Bundles[i].Want = want
		}
	}
	return &m, nil
}

func validateManifest(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidManifest)
	}
	raw, err := json.Marshal(finite(bundle.Normalize(doc)))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return nil
}

// finite replaces NaN and infinities, which JSON cannot carry, with zero. The
// schema only constrains their type.
func finite(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = finite(e)
		}
	case []any:
		for i, e := range t {
			t[i] = finite(e)
		}
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0.0
		}
	}
	return v
}
