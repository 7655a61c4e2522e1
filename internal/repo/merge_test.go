package repo

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testHeader = "File:         02packages.details.txt\n" +
	"URL:          http://www.perl.com/CPAN/modules/02packages.details.txt\n" +
	"Description:  Package names found in directory\n" +
	"\n"

func runMerge(t *testing.T, existing string, pending []string) string {
	t.Helper()
	var out bytes.Buffer
	if err := mergeIndex(strings.NewReader(existing), &out, pending); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func bodyLines(merged string) []string {
	_, body, _ := strings.Cut(merged, "\n\n")
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

func TestMergeEmptyPendingIsIdentity(t *testing.T) {
	t.Parallel()

	existing := testHeader +
		"Alpha                                  1.0  A/AL/ALPHA/Alpha-1.0.tar.gz\n" +
		"Zulu                                   1.0  Z/ZU/ZULU/Zulu-1.0.tar.gz\n"

	merged := runMerge(t, existing, nil)
	if merged != existing {
		t.Errorf("merge with empty pending changed the index:\n%q\nwant\n%q", merged, existing)
	}
}

func TestMergeHeaderPassthrough(t *testing.T) {
	t.Parallel()

	existing := testHeader + "Alpha 1.0 A/AL/ALPHA/Alpha-1.0.tar.gz\n"
	merged := runMerge(t, existing, []string{"Beta 1.0 B/BE/BETA/Beta-1.0.tar.gz"})

	header, _, ok := strings.Cut(merged, "\n\n")
	if !ok {
		t.Fatal("merged output lost the blank header separator")
	}
	if header+"\n\n" != testHeader {
		t.Errorf("header not byte-identical:\n%q\nwant\n%q", header+"\n\n", testHeader)
	}
}

func TestMergeInsertsBetween(t *testing.T) {
	t.Parallel()

	existing := testHeader +
		"Alpha 1.0 path/a\n" +
		"Zulu 1.0 path/z\n"

	merged := runMerge(t, existing, []string{"Beta 1.0 path/b"})
	want := []string{"Alpha 1.0 path/a", "Beta 1.0 path/b", "Zulu 1.0 path/z"}

	got := bodyLines(merged)
	if len(got) != len(want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("body[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergeConsecutivePending(t *testing.T) {
	t.Parallel()

	existing := testHeader + "Zulu 1.0 path/z\n"
	pending := []string{"Alpha 1.0 path/a", "Beta 1.0 path/b", "Gamma 1.0 path/g"}

	got := bodyLines(runMerge(t, existing, pending))
	want := []string{"Alpha 1.0 path/a", "Beta 1.0 path/b", "Gamma 1.0 path/g", "Zulu 1.0 path/z"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestMergeDropsExactDuplicates(t *testing.T) {
	t.Parallel()

	existing := testHeader +
		"Alpha 1.0 path/a\n" +
		"Beta 1.0 path/b\n"

	// Same line, different case: still a duplicate under the fold order.
	got := bodyLines(runMerge(t, existing, []string{"BETA 1.0 PATH/B"}))
	want := []string{"Alpha 1.0 path/a", "Beta 1.0 path/b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("body = %q, want %q (existing copy kept, pending dropped)", got, want)
	}
}

func TestMergeDropsPendingAfterIndexTail(t *testing.T) {
	t.Parallel()

	// The merge stops when the existing stream ends: a pending record
	// sorting after the last existing line is dropped.  This documents
	// the current behavior; it is not corrected here.
	existing := testHeader + "Zulu 1.0 path/z\n"
	got := bodyLines(runMerge(t, existing, []string{"Zzz 1.0 path/zz"}))

	want := []string{"Zulu 1.0 path/z"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("body = %q, want %q (trailing pending must be dropped)", got, want)
	}
}

func TestMergeFoldOrderBeatsASCIIOrder(t *testing.T) {
	t.Parallel()

	// "BBB" sorts before "aaa" in ASCII but between "aaa" and "ccc"
	// case-insensitively.  The merge uses the fold order.
	existing := testHeader +
		"aaa 1.0 path/a\n" +
		"ccc 1.0 path/c\n"

	got := bodyLines(runMerge(t, existing, []string{"BBB 1.0 path/b"}))
	want := []string{"aaa 1.0 path/a", "BBB 1.0 path/b", "ccc 1.0 path/c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestMergeNoExistingBodyLinesLost(t *testing.T) {
	t.Parallel()

	existing := testHeader +
		"Alpha 1.0 path/a\n" +
		"Mike 1.0 path/m\n" +
		"Zulu 1.0 path/z\n"
	pending := []string{"Bravo 1.0 path/b", "November 1.0 path/n"}

	merged := runMerge(t, existing, pending)
	for _, line := range []string{"Alpha 1.0 path/a", "Mike 1.0 path/m", "Zulu 1.0 path/z"} {
		if !strings.Contains(merged, line+"\n") {
			t.Errorf("existing line %q lost in merge", line)
		}
	}
}

func writeGzipIndex(t *testing.T, localDir, content string) string {
	t.Helper()
	modulesDir := filepath.Join(localDir, "modules")
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(modulesDir, "02packages.details.txt.gz")
	f, err := os.Create(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	gzw := gzip.NewWriter(f)
	if _, err := gzw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := gzw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return indexPath
}

func readGzipIndex(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gzr.Close()
	data, err := io.ReadAll(gzr)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestUpdateIndex(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	repoDir := t.TempDir()
	indexPath := writeGzipIndex(t, localDir, testHeader+
		"Alpha 1.0 path/a\n"+
		"Zulu 1.0 path/z\n")

	config := NewConfig()
	config.Local = localDir
	config.Repository = repoDir

	r := New(config, nil, true)
	r.List().Append("Beta 1.0 path/b")
	if err := r.List().Save(); err != nil {
		t.Fatal(err)
	}

	if err := r.UpdateIndex(); err != nil {
		t.Fatal(err)
	}

	merged := readGzipIndex(t, indexPath)
	want := testHeader +
		"Alpha 1.0 path/a\n" +
		"Beta 1.0 path/b\n" +
		"Zulu 1.0 path/z\n"
	if merged != want {
		t.Errorf("merged index:\n%q\nwant:\n%q", merged, want)
	}

	if _, err := os.Stat(indexPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("staging file should be removed after the replace-copy")
	}
}

func TestUpdateIndexSortsPendingCaseSensitively(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	repoDir := t.TempDir()
	indexPath := writeGzipIndex(t, localDir, testHeader+"zzz 1.0 path/zzz\n")

	config := NewConfig()
	config.Local = localDir
	config.Repository = repoDir

	// Appended out of order; the merge must see the ASCII-sorted list.
	r := New(config, nil, true)
	r.List().Append("beta 1.0 path/b")
	r.List().Append("Alpha 1.0 path/a")

	if err := r.UpdateIndex(); err != nil {
		t.Fatal(err)
	}

	merged := readGzipIndex(t, indexPath)
	want := testHeader +
		"Alpha 1.0 path/a\n" +
		"beta 1.0 path/b\n" +
		"zzz 1.0 path/zzz\n"
	if merged != want {
		t.Errorf("merged index:\n%q\nwant:\n%q", merged, want)
	}
}

func TestUpdateIndexMissingIndex(t *testing.T) {
	t.Parallel()

	config := NewConfig()
	config.Local = t.TempDir()
	config.Repository = t.TempDir()

	r := New(config, nil, true)
	err := r.UpdateIndex()
	if err == nil {
		t.Fatal("UpdateIndex should fail without an existing index")
	}
	if !isMarked(err, ErrIndexOpen) {
		t.Errorf("error = %v, want ErrIndexOpen", err)
	}
}
