// Package bundle decodes tar archives whose entries are auxiliary files:
// JSON and YAML documents, text, and rasters in any registered format.
package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/cocosip/go-rasterstats/codec"
)

// ErrInvalidEntry is returned when an entry cannot be parsed for its extension
var ErrInvalidEntry = errors.New("bundle: invalid entry")

// Read decodes every regular file in the tar stream, keyed by its path
// inside the archive. Entry values are:
//   - .json: the parsed document (objects as map[string]any, numbers as float64)
//   - .yaml, .yml: the parsed document with numbers normalized to float64
//   - .txt: string
//   - extensions known to reg: *raster.Array
//   - anything else: []byte
func Read(r io.Reader, reg *codec.Registry) (map[string]any, error) {
	if reg == nil {
		reg = codec.Default()
	}

	out := make(map[string]any)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("bundle: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("bundle: %s: %w", hdr.Name, err)
		}
		name := strings.TrimPrefix(hdr.Name, "./")
		v, err := decodeEntry(name, data, reg)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
}

func decodeEntry(name string, data []byte, reg *codec.Registry) (any, error) {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".json":
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: %s: malformed JSON", ErrInvalidEntry, name)
		}
		return gjson.ParseBytes(data).Value(), nil
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEntry, name, err)
		}
		return Normalize(doc), nil
	case ".txt":
		return string(data), nil
	}

	if ext != "" {
		if c, err := reg.Get(ext); err == nil {
			a, err := c.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidEntry, name, err)
			}
			return a, nil
		}
	}
	return data, nil
}

// Normalize converts YAML-decoded documents to the shapes produced for JSON:
// integer numbers become float64 and maps with non-string keys are keyed by
// their formatted value
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	}
	return v
}
