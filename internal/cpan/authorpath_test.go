package cpan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAuthorPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		author string
		want   string
	}{
		{"BARBIE", "B/BA/BARBIE"},
		{"barbie", "B/BA/BARBIE"},
		{"AB", "A/AB/AB"},
		{"X", "X/X/X"},
	}

	for _, tt := range tests {
		got, err := AuthorPath(tt.author)
		if err != nil {
			t.Errorf("AuthorPath(%q) error = %v", tt.author, err)
			continue
		}
		if got != tt.want {
			t.Errorf("AuthorPath(%q) = %q, want %q", tt.author, got, tt.want)
		}
	}

	if _, err := AuthorPath("  "); err == nil {
		t.Error("AuthorPath of blank identifier should fail")
	}
}

func TestEnsureAuthorDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir, err := EnsureAuthorDir(root, "someone", 0o755)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "authors", "id", "S", "SO", "SOMEONE")
	if dir != want {
		t.Errorf("EnsureAuthorDir = %q, want %q", dir, want)
	}

	st, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsDir() {
		t.Error("author path should be a directory")
	}

	// Second call must not fail on the existing directory.
	dir2, err := EnsureAuthorDir(root, "SOMEONE", 0o755)
	if err != nil {
		t.Fatal(err)
	}
	if dir2 != dir {
		t.Errorf("second EnsureAuthorDir = %q, want %q", dir2, dir)
	}
}

func TestEnsureAuthorDirFileCollision(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	blocked := filepath.Join(root, "authors", "id", "A", "AB", "ABC")
	if err := os.MkdirAll(filepath.Dir(blocked), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(blocked, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := EnsureAuthorDir(root, "abc", 0o755); err == nil {
		t.Error("EnsureAuthorDir should fail when the path is a regular file")
	}
}
