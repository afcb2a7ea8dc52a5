package buildpath

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("<view/>"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestToSourcePath_Builtins(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name    string
		source  string // created relative to tmp
		runtime string // resolved relative to tmp
	}{
		{
			name:    "maven",
			source:  "proj/src/main/resources/app/Main.view",
			runtime: "proj/target/classes/app/Main.view",
		},
		{
			name:    "maven test",
			source:  "proj/src/test/resources/app/Fixture.view",
			runtime: "proj/target/test-classes/app/Fixture.view",
		},
		{
			name:    "maven colocated",
			source:  "proj2/src/main/java/app/Dialog.view",
			runtime: "proj2/target/classes/app/Dialog.view",
		},
		{
			name:    "gradle",
			source:  "gproj/src/main/resources/app/Main.view",
			runtime: "gproj/build/resources/main/app/Main.view",
		},
		{
			name:    "gradle test",
			source:  "gproj/src/test/resources/app/Fixture.view",
			runtime: "gproj/build/resources/test/app/Fixture.view",
		},
		{
			name:    "sbt",
			source:  "sproj/src/main/resources/app/Main.view",
			runtime: "sproj/target/scala-2.13/classes/app/Main.view",
		},
		{
			name:    "sbt scala 3",
			source:  "sproj3/src/main/resources/app/Main.view",
			runtime: "sproj3/target/scala-3.3.1/classes/app/Main.view",
		},
		{
			name:    "eclipse",
			source:  "eproj/src/app/Main.view",
			runtime: "eproj/bin/app/Main.view",
		},
		{
			name:    "intellij",
			source:  "iproj/src/app/Main.view",
			runtime: "iproj/out/production/iproj/app/Main.view",
		},
		{
			name:    "intellij test",
			source:  "iproj/test/app/Fixture.view",
			runtime: "iproj/out/test/iproj/app/Fixture.view",
		},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := filepath.Join(tmp, filepath.FromSlash(tt.source))
			writeFile(t, want)

			got, ok := r.ToSourcePath(filepath.Join(tmp, filepath.FromSlash(tt.runtime)))
			if !ok {
				t.Fatalf("ToSourcePath(%s) not resolved", tt.runtime)
			}
			if got != want {
				t.Errorf("ToSourcePath(%s) = %q, want %q", tt.runtime, got, want)
			}
		})
	}
}

func TestToSourcePath_FileURLAndQuery(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "proj/src/main/resources/app/Main.view")
	writeFile(t, want)

	location := "file://" + tmp + "/proj/target/classes/app/Main.view?v=42"
	got, ok := NewResolver().ToSourcePath(location)
	if !ok {
		t.Fatalf("ToSourcePath(%s) not resolved", location)
	}
	if got != want {
		t.Errorf("ToSourcePath() = %q, want %q", got, want)
	}
}

func TestToSourcePath_NotFound(t *testing.T) {
	tmp := t.TempDir()
	r := NewResolver()

	tests := []struct {
		name     string
		location string
	}{
		{"no marker", filepath.Join(tmp, "proj/resources/app/Main.view")},
		{"marker but missing source", filepath.Join(tmp, "proj/target/classes/app/Missing.view")},
		{"archive entry", "jar:file:" + tmp + "/repo/lib.jar!/app/Main.view"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := r.ToSourcePath(tt.location); ok {
				t.Errorf("ToSourcePath(%q) = %q, want not found", tt.location, got)
			}
		})
	}
}

func TestToSourcePath_FirstExistingWins(t *testing.T) {
	tmp := t.TempDir()
	resources := filepath.Join(tmp, "proj/src/main/resources/app/Main.view")
	colocated := filepath.Join(tmp, "proj/src/main/java/app/Main.view")
	writeFile(t, resources)
	writeFile(t, colocated)

	got, ok := NewResolver().ToSourcePath(filepath.Join(tmp, "proj/target/classes/app/Main.view"))
	if !ok {
		t.Fatal("ToSourcePath() not resolved")
	}
	// maven precedes maven-colocated in the profile order
	if got != resources {
		t.Errorf("ToSourcePath() = %q, want %q", got, resources)
	}
}

func TestToSourcePath_CustomConverter(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "ws/views/app/Main.view")
	writeFile(t, want)

	r := NewResolver(WithConverter("flat", func(out string) (string, bool) {
		return tmp + "/ws/views/app/Main.view", true
	}))

	got, ok := r.ToSourcePath(filepath.Join(tmp, "anything/at/all.view"))
	if !ok {
		t.Fatal("ToSourcePath() not resolved")
	}
	if got != want {
		t.Errorf("ToSourcePath() = %q, want %q", got, want)
	}
}

func TestToSourcePath_CustomProfile(t *testing.T) {
	tmp := t.TempDir()
	want := filepath.Join(tmp, "bproj/srcs/app/Main.view")
	writeFile(t, want)

	r := NewResolver(WithProfiles(Profile{
		Name:         "bazel",
		OutputMarker: "bazel-bin",
		SourceDir:    "srcs",
		OutputDir:    "bazel-bin",
	}))

	got, ok := r.ToSourcePath(filepath.Join(tmp, "bproj/bazel-bin/app/Main.view"))
	if !ok {
		t.Fatal("ToSourcePath() not resolved")
	}
	if got != want {
		t.Errorf("ToSourcePath() = %q, want %q", got, want)
	}
}

func TestToOutputPath(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "proj/target/classes/app/Main.view")
	writeFile(t, out)

	got, ok := NewResolver().ToOutputPath(filepath.Join(tmp, "proj/src/main/resources/app/Main.view"))
	if !ok {
		t.Fatal("ToOutputPath() not resolved")
	}
	if got != out {
		t.Errorf("ToOutputPath() = %q, want %q", got, out)
	}
}

func TestToOutputPath_NotFound(t *testing.T) {
	tmp := t.TempDir()

	if got, ok := NewResolver().ToOutputPath(filepath.Join(tmp, "proj/src/main/resources/app/Main.view")); ok {
		t.Errorf("ToOutputPath() = %q, want not found", got)
	}
}

func TestExtractResourcePath(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"maven output", "/proj/target/classes/app/Main.view", "app/Main.view", true},
		{"maven source", "/proj/src/main/resources/app/Main.view", "app/Main.view", true},
		{"maven colocated source", "/proj/src/main/java/app/Main.view", "app/Main.view", true},
		{"gradle output", "/proj/build/resources/main/app/Main.view", "app/Main.view", true},
		{"sbt output", "/proj/target/scala-2.13/classes/views/Main.view", "views/Main.view", true},
		{"eclipse source", "/proj/src/app/Main.view", "app/Main.view", true},
		{"intellij output skips module", "/proj/out/production/proj/app/Main.view", "app/Main.view", true},
		{"query stripped", "/proj/target/classes/app/Main.view?v=7", "app/Main.view", true},
		{"archive entry", "jar:file:/repo/lib.jar!/views/Main.view", "views/Main.view", true},
		{"archive entry with marker", "jar:file:/repo/app.jar!/target/classes/views/Main.view", "views/Main.view", true},
		{"windows separators", `C:\proj\target\classes\app\Main.view`, "app/Main.view", true},
		{"no marker", "/data/views/Main.view", "", false},
		{"marker with nothing after", "/proj/target/classes", "", false},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ExtractResourcePath(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ExtractResourcePath(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractResourcePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractResourcePath_NestedModules(t *testing.T) {
	// The deepest marker isolates the innermost module.
	r := NewResolver()

	got, ok := r.ExtractResourcePath("/repo/target/classes/sub/target/classes/app/Main.view")
	if !ok {
		t.Fatal("ExtractResourcePath() not resolved")
	}
	if got != "app/Main.view" {
		t.Errorf("ExtractResourcePath() = %q, want app/Main.view", got)
	}
}

func TestDefaultProfiles_Coverage(t *testing.T) {
	var maven, gradle, sbt, eclipse, intellij, test bool
	for _, p := range DefaultProfiles() {
		switch p.Name {
		case "maven":
			maven = true
		case "gradle":
			gradle = true
		case "sbt":
			sbt = true
		case "eclipse":
			eclipse = true
		case "intellij":
			intellij = true
		}
		if p.Test {
			test = true
		}
	}

	if !maven || !gradle || !sbt {
		t.Error("expected at least three build tool profiles (maven, gradle, sbt)")
	}
	if !eclipse || !intellij {
		t.Error("expected IDE profiles (eclipse, intellij)")
	}
	if !test {
		t.Error("expected at least one test-resource profile")
	}
}
