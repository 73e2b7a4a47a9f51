package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"monorun/internal/project"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func names(pkgs []Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Name)
	}
	return out
}

func TestDependencies_PreservesDeclarationOrder(t *testing.T) {
	var m Manifest
	raw := `{"name":"app","dependencies":{"zeta":"1","alpha":"2","mid":"3"},"devDependencies":null}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if want := []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(m.Dependencies.Names, want) {
		t.Fatalf("Names = %v, want %v", m.Dependencies.Names, want)
	}
	if m.Dependencies.Versions["alpha"] != "2" {
		t.Fatalf("Versions = %v", m.Dependencies.Versions)
	}
	if len(m.DevDependencies.Names) != 0 {
		t.Fatalf("null devDependencies must be empty, got %v", m.DevDependencies.Names)
	}

	out, err := json.Marshal(m.Dependencies)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"zeta":"1","alpha":"2","mid":"3"}` {
		t.Fatalf("Marshal = %s", out)
	}
}

func TestDependencies_RejectsNonObject(t *testing.T) {
	var m Manifest
	if err := json.Unmarshal([]byte(`{"name":"app","dependencies":["a"]}`), &m); err == nil {
		t.Fatalf("expected error for array dependencies")
	}
}

func TestWorkspaceGlobs_BothForms(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`{"workspaces":["packages/*","apps/*"]}`, []string{"packages/*", "apps/*"}},
		{`{"workspaces":{"packages":["libs/*"],"nohoist":["**/x"]}}`, []string{"libs/*"}},
		{`{}`, nil},
	}
	for _, tt := range tests {
		var m Manifest
		if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.raw, err)
		}
		if !reflect.DeepEqual([]string(m.Workspaces), tt.want) {
			t.Fatalf("Workspaces(%s) = %v, want %v", tt.raw, m.Workspaces, tt.want)
		}
	}
}

func TestGlobs_MissingRootManifest(t *testing.T) {
	globs, err := Globs(t.TempDir())
	if err != nil {
		t.Fatalf("Globs returned error: %v", err)
	}
	if globs != nil {
		t.Fatalf("expected no globs, got %v", globs)
	}
}

func TestDiscover_SortedByDirAndDeduplicated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"root","workspaces":["packages/*","packages/b"]}`)
	writeFile(t, filepath.Join(root, "packages/c/package.json"), `{"name":"@acme/c"}`)
	writeFile(t, filepath.Join(root, "packages/a/package.json"), `{"name":"@acme/a","dependencies":{"@acme/c":"*"}}`)
	writeFile(t, filepath.Join(root, "packages/b/package.json"), `{"name":"@acme/b"}`)
	writeFile(t, filepath.Join(root, "packages/notes.txt"), "not a package")
	if err := os.MkdirAll(filepath.Join(root, "packages/empty"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	globs, err := Globs(root)
	if err != nil {
		t.Fatalf("Globs: %v", err)
	}
	pkgs, err := Discover(context.Background(), root, globs)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got, want := names(pkgs), []string{"@acme/a", "@acme/b", "@acme/c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover = %v, want %v", got, want)
	}
	if pkgs[0].Dir != filepath.Join(root, "packages", "a") {
		t.Fatalf("Dir = %q", pkgs[0].Dir)
	}
}

func TestDiscover_Errors(t *testing.T) {
	root := t.TempDir()
	if _, err := Discover(context.Background(), root, nil); !errors.Is(err, ErrNoPackageGlobs) {
		t.Fatalf("expected ErrNoPackageGlobs, got %v", err)
	}

	writeFile(t, filepath.Join(root, "pkgs/anon/package.json"), `{"version":"1.0.0"}`)
	_, err := Discover(context.Background(), root, []string{"pkgs/*"})
	if err == nil || !strings.Contains(err.Error(), `missing "name"`) {
		t.Fatalf("expected missing name error, got %v", err)
	}

	writeFile(t, filepath.Join(root, "bad/x/package.json"), `{"name":`)
	if _, err := Discover(context.Background(), root, []string{"bad/*"}); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, err := Discover(context.Background(), root, []string{"/abs/*"}); err == nil {
		t.Fatalf("expected absolute glob error")
	}
}

func TestPackageProject_SelectedKinds(t *testing.T) {
	var m Manifest
	raw := `{"name":"web","dependencies":{"ui":"*","utils":"*"},"devDependencies":{"tooling":"*","ui":"*"},"peerDependencies":{"react":"*"}}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	pkg := Package{Name: m.Name, Dir: "web", Manifest: &m}

	all, err := pkg.Project(project.Kinds)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if want := []string{"ui", "utils", "tooling", "react"}; !reflect.DeepEqual(all.Dependencies(), want) {
		t.Fatalf("all kinds = %v, want %v", all.Dependencies(), want)
	}

	runtime, err := pkg.Project([]project.Kind{project.KindRuntime})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if want := []string{"ui", "utils"}; !reflect.DeepEqual(runtime.Dependencies(), want) {
		t.Fatalf("runtime only = %v, want %v", runtime.Dependencies(), want)
	}
}

func TestFilter(t *testing.T) {
	root := t.TempDir()
	mk := func(name, dir string) Package {
		full := filepath.Join(root, dir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		return Package{Name: name, Dir: full, Manifest: &Manifest{Name: name}}
	}
	pkgs := []Package{
		mk("@acme/api-service", "api"),
		mk("@acme/ui", "ui"),
		mk("@other/auth-service", "auth"),
		mk("docs", "docs"),
	}
	writeFile(t, filepath.Join(root, "ui", "tsconfig.json"), "{}")
	if err := os.MkdirAll(filepath.Join(root, "api", "src"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"no criteria", Selection{}, []string{"@acme/api-service", "@acme/ui", "@other/auth-service", "docs"}},
		{"unscoped pattern", Selection{Include: []string{"*-service"}}, []string{"@acme/api-service", "@other/auth-service"}},
		{"scoped pattern", Selection{Include: []string{"@acme/*"}}, []string{"@acme/api-service", "@acme/ui"}},
		{"exclude", Selection{Exclude: []string{"docs", "@other/*"}}, []string{"@acme/api-service", "@acme/ui"}},
		{"if-file", Selection{IfFile: []string{"tsconfig.json"}}, []string{"@acme/ui"}},
		{"if-dir", Selection{IfDir: []string{"src"}}, []string{"@acme/api-service"}},
		{"if-dir rejects file", Selection{IfDir: []string{"tsconfig.json"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(pkgs, tt.sel)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(names(got), tt.want) {
				t.Fatalf("Filter = %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestManifestLoader_CachesReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	writeFile(t, path, `{"name":"a"}`)

	var l manifestLoader
	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached manifest")
	}
}
