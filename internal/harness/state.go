package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statelake/internal/value"
)

// LoadDocument reads a state document. The format follows the extension:
// .json, .yaml/.yml or .cue.
func LoadDocument(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err := value.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return v, nil
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".cue":
		return DecodeCUE(data, path)
	default:
		return nil, fmt.Errorf("%s: unsupported document format %q", path, filepath.Ext(path))
	}
}

// DecodeYAML decodes a single YAML document into a value.
// An empty document is Undefined.
func DecodeYAML(data []byte) (value.Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if node.Kind == 0 {
		return value.Undefined{}, nil
	}
	return nodeValue(&node)
}

// DecodeCUE evaluates CUE source and converts the result into a value.
// The result must be concrete: definitions and open constraints are
// resolved by CUE, and anything left non-concrete is an error.
func DecodeCUE(src []byte, filename string) (value.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE value is not concrete: %w", err)
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export CUE: %w", err)
	}
	return value.Parse(data)
}

// nodeValue converts a decoded YAML node. A missing node is Undefined.
func nodeValue(n *yaml.Node) (value.Value, error) {
	if n == nil || n.Kind == 0 {
		return value.Undefined{}, nil
	}
	var raw any
	if err := n.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	v, err := value.From(raw)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return v, nil
}

// InitialState resolves the scenario's initial root state.
// A scenario without any initial source starts from Undefined.
func (s *Scenario) InitialState() (value.Value, error) {
	switch {
	case present(s.Initial):
		return nodeValue(&s.Initial)
	case s.InitialCUE != "":
		return DecodeCUE([]byte(s.InitialCUE), s.Name+".cue")
	case s.InitialFile != "":
		return LoadDocument(s.initialPath())
	default:
		return value.Undefined{}, nil
	}
}
