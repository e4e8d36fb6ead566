package edit

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gorewood/code-edit/internal/output"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func setup(t *testing.T, original, proposed string) (string, *Request, *Result) {
	t.Helper()
	dir := t.TempDir()
	path := writeTemp(t, dir, "greet.py", original)
	req := &Request{SourcePath: path, SourceText: original, Language: "python", Mode: 0o640}
	return dir, req, &Result{Original: original, Proposed: proposed}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestApply_InPlace(t *testing.T) {
	dir, req, result := setup(t, "old\n", "new\n")

	applied, err := Apply(req, result, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if !applied.Written || applied.Path != req.SourcePath || applied.BackupPath != "" {
		t.Errorf("Applied = %+v", applied)
	}
	if got := readFile(t, req.SourcePath); got != "new\n" {
		t.Errorf("content = %q, want proposed", got)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Errorf("directory = %v, want only the source file", names)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(req.SourcePath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o640 {
			t.Errorf("mode = %v, want 0640 preserved", info.Mode().Perm())
		}
	}
}

func TestApply_Backup(t *testing.T) {
	_, req, result := setup(t, "original bytes\n", "new\n")

	applied, err := Apply(req, result, ApplyOptions{Backup: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	wantBackup := req.SourcePath + ".backup"
	if applied.BackupPath != wantBackup {
		t.Errorf("BackupPath = %q, want %q", applied.BackupPath, wantBackup)
	}
	if got := readFile(t, wantBackup); got != "original bytes\n" {
		t.Errorf("backup = %q, want the original bytes", got)
	}
	if got := readFile(t, req.SourcePath); got != "new\n" {
		t.Errorf("source = %q", got)
	}
}

func TestApply_BackupReplacesPrevious(t *testing.T) {
	_, req, result := setup(t, "second\n", "third\n")
	writeTemp(t, filepath.Dir(req.SourcePath), "greet.py.orig", "first\n")

	if _, err := Apply(req, result, ApplyOptions{Backup: true, BackupSuffix: ".orig"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := readFile(t, req.SourcePath+".orig"); got != "second\n" {
		t.Errorf("backup = %q, want latest original", got)
	}
}

func TestApply_Output(t *testing.T) {
	dir, req, result := setup(t, "old\n", "new\n")
	out := filepath.Join(dir, "out", "greet_new.py")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}

	applied, err := Apply(req, result, ApplyOptions{Output: out})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if applied.Path != out {
		t.Errorf("Path = %q, want %q", applied.Path, out)
	}
	if got := readFile(t, out); got != "new\n" {
		t.Errorf("output = %q", got)
	}
	if got := readFile(t, req.SourcePath); got != "old\n" {
		t.Errorf("source modified: %q", got)
	}
}

func TestApply_UnchangedSkipsWrite(t *testing.T) {
	dir, req, result := setup(t, "same\n", "same\n")

	applied, err := Apply(req, result, ApplyOptions{Backup: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if applied.Written {
		t.Error("Written = true for an unchanged result")
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Errorf("directory = %v, want no backup", names)
	}
}

func TestApply_UnchangedWithOutputStillWrites(t *testing.T) {
	dir, req, result := setup(t, "same\n", "same\n")
	out := filepath.Join(dir, "copy.py")

	applied, err := Apply(req, result, ApplyOptions{Output: out})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !applied.Written || readFile(t, out) != "same\n" {
		t.Errorf("Applied = %+v", applied)
	}
}

func TestApply_Errors(t *testing.T) {
	dir, req, result := setup(t, "old\n", "new\n")

	_, err := Apply(req, result, ApplyOptions{Output: dir})
	if code := output.GetExitCode(err); code != output.ExitUserError {
		t.Errorf("directory output: exit code = %d, want %d (err %v)", code, output.ExitUserError, err)
	}

	_, err = Apply(req, result, ApplyOptions{Output: filepath.Join(dir, "missing", "x.py")})
	if code := output.GetExitCode(err); code != output.ExitSystemError {
		t.Errorf("missing parent: exit code = %d, want %d (err %v)", code, output.ExitSystemError, err)
	}

	if got := readFile(t, req.SourcePath); got != "old\n" {
		t.Errorf("source modified after failures: %q", got)
	}
}

func TestApply_FollowsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir, req, result := setup(t, "old\n", "new\n")
	link := filepath.Join(dir, "link.py")
	if err := os.Symlink(req.SourcePath, link); err != nil {
		t.Fatal(err)
	}
	req.SourcePath = link

	if _, err := Apply(req, result, ApplyOptions{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("symlink replaced by a regular file")
	}
	if got := readFile(t, filepath.Join(dir, "greet.py")); got != "new\n" {
		t.Errorf("target = %q", got)
	}
}

func TestWriteFileAtomic_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.txt")
	if err := WriteFileAtomic(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if got := readFile(t, path); got != "hello" {
		t.Errorf("content = %q", got)
	}
}
