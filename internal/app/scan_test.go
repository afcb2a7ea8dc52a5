package app

import (
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	dir := testProject(t)

	disc, err := Discover(dir, []string{".view"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(disc.Views) != 3 {
		t.Errorf("len(Views) = %d, want 3", len(disc.Views))
	}
	if len(disc.Roots) != 2 {
		t.Fatalf("len(Roots) = %d, want 2: %+v", len(disc.Roots), disc.Roots)
	}

	main := disc.Roots[0]
	if main.Resource != "app/Main.view" {
		t.Errorf("Roots[0].Resource = %q, want app/Main.view", main.Resource)
	}
	if main.Path != filepath.Join(dir, "app", "Main.view") {
		t.Errorf("Roots[0].Path = %q", main.Path)
	}
	if len(main.Includes) != 1 || main.Includes[0] != "app/Header.view" {
		t.Errorf("Roots[0].Includes = %v, want [app/Header.view]", main.Includes)
	}

	table := disc.Roots[1]
	if table.Resource != "lib/Table.view" {
		t.Errorf("Roots[1].Resource = %q, want lib/Table.view", table.Resource)
	}
	if len(table.Includes) != 0 {
		t.Errorf("Roots[1].Includes = %v, want none", table.Includes)
	}
}

func TestDiscover_SkipsHiddenAndBuildDirs(t *testing.T) {
	dir := testProject(t)
	writeProjectFile(t, dir, "out/res/app/Main.view", `<pane/>`)
	writeProjectFile(t, dir, ".cache/Tmp.view", `<pane/>`)

	disc, err := Discover(dir, []string{".view"})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(disc.Views) != 3 {
		t.Errorf("len(Views) = %d, want 3", len(disc.Views))
	}
	if len(disc.Roots) != 2 {
		t.Errorf("len(Roots) = %d, want 2", len(disc.Roots))
	}
}

func TestResourceRel(t *testing.T) {
	root := filepath.FromSlash("/project")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "inside", path: filepath.FromSlash("/project/app/Main.view"), want: "app/Main.view"},
		{name: "nested", path: filepath.FromSlash("/project/a/b/c.view"), want: "a/b/c.view"},
		{name: "outside", path: filepath.FromSlash("/elsewhere/Main.view"), want: ""},
		{name: "parent", path: filepath.FromSlash("/project/../Main.view"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resourceRel(root, tt.path); got != tt.want {
				t.Errorf("resourceRel(%q, %q) = %q, want %q", root, tt.path, got, tt.want)
			}
		})
	}
}
