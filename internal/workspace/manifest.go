package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ManifestFile is the per-package manifest name.
const ManifestFile = "package.json"

// Dependencies is a manifest dependency map that keeps declaration order.
type Dependencies struct {
	Names    []string
	Versions map[string]string
}

func (d *Dependencies) UnmarshalJSON(raw []byte) error {
	d.Names = nil
	d.Versions = nil
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("dependency list must be a JSON object")
	}

	d.Versions = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected dependency key %v", keyTok)
		}
		var version string
		if err := dec.Decode(&version); err != nil {
			return fmt.Errorf("dependency %q: %w", key, err)
		}
		if _, dup := d.Versions[key]; !dup {
			d.Names = append(d.Names, key)
		}
		d.Versions[key] = version
	}
	_, err = dec.Token()
	return err
}

func (d Dependencies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.Versions[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Manifest is the subset of package.json monorun reads.
type Manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version,omitempty"`
	Private              bool              `json:"private,omitempty"`
	Scripts              map[string]string `json:"scripts,omitempty"`
	Dependencies         Dependencies      `json:"dependencies"`
	DevDependencies      Dependencies      `json:"devDependencies"`
	OptionalDependencies Dependencies      `json:"optionalDependencies"`
	PeerDependencies     Dependencies      `json:"peerDependencies"`
	Workspaces           WorkspaceGlobs    `json:"workspaces,omitempty"`
}

// WorkspaceGlobs accepts both the array form of "workspaces" and the
// {"packages": [...]} object form.
type WorkspaceGlobs []string

func (w *WorkspaceGlobs) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*w = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*w = list
		return nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*w = obj.Packages
	return nil
}

func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// HasScript reports whether the manifest declares a non-empty script.
func (m *Manifest) HasScript(name string) bool {
	return m != nil && m.Scripts[name] != ""
}
