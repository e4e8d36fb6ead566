package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorewood/code-edit/internal/output"
)

const greetSource = "def greet(): pass\n"

const greetReply = "Sure, here is the updated file:\n\n```python\ndef greet():\n    \"\"\"Greets.\"\"\"\n    pass\n```\n"

const greetProposed = "def greet():\n    \"\"\"Greets.\"\"\"\n    pass\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s should not exist (stat err %v)", path, err)
	}
}

func greetFile(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "greet.py", greetSource)
}

func TestEdit_PreviewGreet(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, _ := testApp(t, fake)
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--preview")
	if res.err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", res.err, res.stderr)
	}

	for _, want := range []string{
		"--- Original",
		"+++ Modified",
		"-def greet(): pass",
		"+def greet():",
		`+    """Greets."""`,
		"+    pass",
		"+3 -1",
		"Preview only; no changes written.",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, res.stdout)
		}
	}

	if got := readFile(t, path); got != greetSource {
		t.Errorf("preview modified the file: %q", got)
	}
	assertNotExist(t, path+".backup")
	if fake.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", fake.calls)
	}
	if !strings.Contains(fake.got.Prompt, "add a docstring") || !strings.Contains(fake.got.Prompt, greetSource) {
		t.Errorf("prompt should carry instruction and file:\n%s", fake.got.Prompt)
	}
	if fake.got.System == "" {
		t.Error("expected the default system prompt to be sent")
	}
}

func TestEdit_PreviewWithBackupWritesNothing(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--preview", "--backup")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if got := readFile(t, path); got != greetSource {
		t.Errorf("preview modified the file: %q", got)
	}
	assertNotExist(t, path+".backup")
}

func TestEdit_InPlace(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring")
	if res.err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", res.err, res.stderr)
	}

	if got := readFile(t, path); got != greetProposed {
		t.Errorf("expected extracted content without fences, got %q", got)
	}
	if !strings.Contains(res.stdout, "Successfully wrote changes to "+path) {
		t.Errorf("missing success message:\n%s", res.stdout)
	}
	if strings.Contains(res.stdout, "--- Original") {
		t.Errorf("diff should not be shown for an in-place write without --diff:\n%s", res.stdout)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file in its directory, got %d entries", len(entries))
	}
}

func TestEdit_DiffFlag(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--diff")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "+++ Modified") {
		t.Errorf("--diff should show the diff:\n%s", res.stdout)
	}
	if got := readFile(t, path); got != greetProposed {
		t.Errorf("file not written: %q", got)
	}
}

func TestEdit_Backup(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--backup")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	if got := readFile(t, path+".backup"); got != greetSource {
		t.Errorf("backup should hold the original bytes, got %q", got)
	}
	if got := readFile(t, path); got != greetProposed {
		t.Errorf("file not written: %q", got)
	}
	if !strings.Contains(res.stderr, "Backup saved to "+path+".backup") {
		t.Errorf("missing backup message on stderr:\n%s", res.stderr)
	}
	if strings.Contains(res.stdout, "Backup saved to") {
		t.Errorf("backup hint should stay off stdout:\n%s", res.stdout)
	}
}

func TestEdit_BackupSuffixFromConfig(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	writeFile(t, os.Getenv("CODE_EDIT_CONFIG_HOME"), "config.yaml", "backup_suffix: .orig\n")
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--backup")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if got := readFile(t, path+".orig"); got != greetSource {
		t.Errorf("backup = %q", got)
	}
	assertNotExist(t, path+".backup")
}

func TestEdit_Output(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)
	dest := filepath.Join(filepath.Dir(path), "greet_new.py")

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "-o", dest)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	if got := readFile(t, dest); got != greetProposed {
		t.Errorf("output = %q", got)
	}
	if got := readFile(t, path); got != greetSource {
		t.Errorf("source modified: %q", got)
	}
	if !strings.Contains(res.stdout, "+++ Modified") {
		t.Errorf("diff should be shown when writing to another path:\n%s", res.stdout)
	}
}

func TestEdit_Unchanged(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: "```python\n" + greetSource + "```"})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "do nothing", "--backup")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "No changes proposed") {
		t.Errorf("expected no-change message:\n%s", res.stdout)
	}
	assertNotExist(t, path+".backup")
}

func TestEdit_FallbackWarns(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetProposed})
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stderr, "Warning") || !strings.Contains(res.stderr, "no fenced code block") {
		t.Errorf("expected a fallback warning on stderr:\n%s", res.stderr)
	}
	if got := readFile(t, path); got != greetProposed {
		t.Errorf("file = %q", got)
	}
}

func TestEdit_PromptFile(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, _ := testApp(t, fake)
	path := greetFile(t)
	promptPath := writeFile(t, filepath.Dir(path), "change.txt", "add a docstring\n")

	res := execute(t, a, "", "-f", path, "-P", promptPath, "--preview")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(fake.got.Prompt, "<instruction>\nadd a docstring\n</instruction>") {
		t.Errorf("instruction not taken from file:\n%s", fake.got.Prompt)
	}
}

func TestEdit_EditSubcommand(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "edit", "-f", path, "-p", "add a docstring", "--preview")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(res.stdout, "+++ Modified") {
		t.Errorf("edit subcommand should preview like the root command:\n%s", res.stdout)
	}
}

func TestEdit_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(path string) []string
		wantErr string
	}{
		{
			name:    "both prompts",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "-P", path} },
			wantErr: "--prompt and --prompt-file are mutually exclusive",
		},
		{
			name:    "no prompt",
			args:    func(path string) []string { return []string{"-f", path} },
			wantErr: "either --prompt or --prompt-file must be specified",
		},
		{
			name:    "no file",
			args:    func(string) []string { return []string{"-p", "x"} },
			wantErr: "--file is required",
		},
		{
			name:    "confirm with preview",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "--confirm", "--preview"} },
			wantErr: "--confirm and --preview are mutually exclusive",
		},
		{
			name:    "confirm with json",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "--confirm", "--json"} },
			wantErr: "--confirm cannot be used with --json",
		},
		{
			name:    "bad provider",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "--provider", "acme"} },
			wantErr: `unknown provider "acme"`,
		},
		{
			name:    "bad temperature",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "--temperature", "3"} },
			wantErr: "--temperature must be between 0 and 2",
		},
		{
			name:    "unknown template",
			args:    func(path string) []string { return []string{"-f", path, "-p", "x", "--template", "nope"} },
			wantErr: `prompt "nope" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{content: greetReply}
			a, _ := testApp(t, fake)
			path := greetFile(t)

			res := execute(t, a, "", tt.args(path)...)
			if res.err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(res.err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", res.err.Error(), tt.wantErr)
			}
			if code := output.GetExitCode(res.err); code != output.ExitUserError {
				t.Errorf("expected exit code %d, got %d", output.ExitUserError, code)
			}
			if fake.calls != 0 {
				t.Errorf("model called %d times on a usage error", fake.calls)
			}
			if got := readFile(t, path); got != greetSource {
				t.Errorf("file modified on a usage error: %q", got)
			}
		})
	}
}

func TestEdit_FileErrors(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, _ := testApp(t, fake)
	missing := filepath.Join(t.TempDir(), "missing.py")

	res := execute(t, a, "", "-f", missing, "-p", "x")
	if code := output.GetExitCode(res.err); code != output.ExitUserError {
		t.Errorf("expected exit code %d, got %d (%v)", output.ExitUserError, code, res.err)
	}
	if !strings.Contains(res.stderr, missing) {
		t.Errorf("error should name the path:\n%s", res.stderr)
	}
	if fake.calls != 0 {
		t.Errorf("model called for a missing file")
	}
}

func TestEdit_ProviderFailure(t *testing.T) {
	fake := &fakeCompleter{err: output.NewProviderError("API error (status 500): internal")}
	a, _ := testApp(t, fake)
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "add a docstring", "--backup")
	if code := output.GetExitCode(res.err); code != output.ExitProviderError {
		t.Fatalf("expected exit code %d, got %d (%v)", output.ExitProviderError, code, res.err)
	}
	if !strings.Contains(res.stderr, "API error (status 500): internal") {
		t.Errorf("provider message should be surfaced verbatim:\n%s", res.stderr)
	}
	if got := readFile(t, path); got != greetSource {
		t.Errorf("file modified after provider failure: %q", got)
	}
	assertNotExist(t, path+".backup")
}

func TestEdit_MissingAPIKey(t *testing.T) {
	t.Setenv("CODE_EDIT_CONFIG_HOME", t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "")
	a := &app{newCompleter: newLLMCompleter, workDir: t.TempDir()}
	missing := filepath.Join(t.TempDir(), "missing.py")

	// The credential is checked before the file is read.
	res := execute(t, a, "", "-f", missing, "-p", "x", "--model", "flash")
	if code := output.GetExitCode(res.err); code != output.ExitConfigError {
		t.Errorf("expected exit code %d, got %d (%v)", output.ExitConfigError, code, res.err)
	}
	if !strings.Contains(res.stderr, "GOOGLE_API_KEY") {
		t.Errorf("error should name the key variable:\n%s", res.stderr)
	}
}

func TestEdit_Confirm(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantFile  string
		wantInOut string
	}{
		{name: "yes", answer: "y\n", wantFile: greetProposed, wantInOut: "Successfully wrote changes"},
		{name: "yes word", answer: "YES\n", wantFile: greetProposed, wantInOut: "Successfully wrote changes"},
		{name: "no", answer: "n\n", wantFile: greetSource, wantInOut: "No changes written."},
		{name: "empty", answer: "\n", wantFile: greetSource, wantInOut: "No changes written."},
		{name: "eof", answer: "", wantFile: greetSource, wantInOut: "No changes written."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := testApp(t, &fakeCompleter{content: greetReply})
			path := greetFile(t)

			res := execute(t, a, tt.answer, "-f", path, "-p", "add a docstring", "--confirm", "--backup")
			if res.err != nil {
				t.Fatalf("unexpected error: %v", res.err)
			}
			if !strings.Contains(res.stderr, "Apply changes to "+path+"?") {
				t.Errorf("missing confirmation question:\n%s", res.stderr)
			}
			if !strings.Contains(res.stdout, "+++ Modified") {
				t.Errorf("diff should be shown before asking:\n%s", res.stdout)
			}
			if !strings.Contains(res.stdout, tt.wantInOut) {
				t.Errorf("output missing %q:\n%s", tt.wantInOut, res.stdout)
			}
			if got := readFile(t, path); got != tt.wantFile {
				t.Errorf("file = %q, want %q", got, tt.wantFile)
			}
			if tt.wantFile == greetSource {
				assertNotExist(t, path+".backup")
			}
		})
	}
}

func TestEdit_JSONPreview(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)

	res := execute(t, a, "", "--json", "-f", path, "-p", "add a docstring", "--preview")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	var result struct {
		File     string   `json:"file"`
		Language string   `json:"language"`
		Model    string   `json:"model"`
		Preview  bool     `json:"preview"`
		Changed  bool     `json:"changed"`
		Diff     string   `json:"diff"`
		Added    int      `json:"added"`
		Removed  int      `json:"removed"`
		Proposed string   `json:"proposed"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &result); err != nil {
		t.Fatalf("output should be a single JSON object: %v\n%s", err, res.stdout)
	}

	if !result.Preview || !result.Changed {
		t.Errorf("preview/changed = %v/%v", result.Preview, result.Changed)
	}
	if result.Added != 3 || result.Removed != 1 {
		t.Errorf("expected +3 -1, got +%d -%d", result.Added, result.Removed)
	}
	if result.Language != "python" || result.Model != "fake-model" {
		t.Errorf("language/model = %q/%q", result.Language, result.Model)
	}
	if result.Proposed != greetProposed {
		t.Errorf("proposed = %q", result.Proposed)
	}
	if result.Warnings == nil || len(result.Warnings) != 0 {
		t.Errorf("warnings = %#v, want empty list", result.Warnings)
	}
}

func TestEdit_JSONWarningsInResult(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetProposed})
	path := greetFile(t)

	res := execute(t, a, "", "--json", "-f", path, "-p", "add a docstring")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &result); err != nil {
		t.Fatalf("output should be a single JSON object: %v\n%s", err, res.stdout)
	}
	warnings, _ := result["warnings"].([]any)
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", result["warnings"])
	}
	if result["written"] != true || result["path"] != path {
		t.Errorf("unexpected result %v", result)
	}
}

func TestEdit_ConfigLayering(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, calls := testApp(t, fake)
	writeFile(t, os.Getenv("CODE_EDIT_CONFIG_HOME"), "config.yaml", "model: sonnet\ntemperature: 0.7\nmax_tokens: 2000\n")
	writeFile(t, a.workDir, ".code-edit.yaml", "temperature: 0.3\n")
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "x", "--preview")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if calls.model != "sonnet" {
		t.Errorf("model = %q, want sonnet from global config", calls.model)
	}
	if fake.got.Temperature == nil || *fake.got.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3 from project config", fake.got.Temperature)
	}
	if fake.got.MaxTokens != 2000 {
		t.Errorf("max tokens = %d, want 2000", fake.got.MaxTokens)
	}

	res = execute(t, a, "", "-f", path, "-p", "x", "--preview", "-m", "gpt-5-mini", "--temperature", "0")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if calls.model != "gpt-5-mini" {
		t.Errorf("flag should override config, got model %q", calls.model)
	}
	if fake.got.Temperature == nil || *fake.got.Temperature != 0 {
		t.Errorf("flag should override config, got temperature %v", fake.got.Temperature)
	}
}

func TestEdit_BadConfig(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, _ := testApp(t, fake)
	writeFile(t, a.workDir, ".code-edit.yaml", "model: [unclosed\n")
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "x")
	if code := output.GetExitCode(res.err); code != output.ExitConfigError {
		t.Errorf("expected exit code %d, got %d (%v)", output.ExitConfigError, code, res.err)
	}
	if fake.calls != 0 {
		t.Error("model called with a broken config")
	}
}

func TestEdit_ProjectTemplate(t *testing.T) {
	fake := &fakeCompleter{content: greetReply}
	a, _ := testApp(t, fake)
	writeFile(t, a.workDir, ".code-edit/prompts/terse.md", "---\ndescription: Terse\n---\nReturn only code.\n")
	path := greetFile(t)

	res := execute(t, a, "", "-f", path, "-p", "x", "--preview", "--template", "terse")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !strings.Contains(fake.got.System, "Return only code.") {
		t.Errorf("system prompt = %q", fake.got.System)
	}
}

func TestEdit_RawTemplateMarkdown(t *testing.T) {
	readme := "# Tool\n\nInstall it:\n\n```sh\ngo install ./...\n```\n\nThat's all.\n"
	fake := &fakeCompleter{content: readme}
	a, _ := testApp(t, fake)
	path := writeFile(t, t.TempDir(), "README.md", "# Tool\n\nInstall it:\n\n```sh\ngo install ./...\n```\n")

	res := execute(t, a, "", "-f", path, "-p", "add a closing line", "--template", "raw")
	if res.err != nil {
		t.Fatalf("unexpected error: %v\nstderr: %s", res.err, res.stderr)
	}
	if !strings.Contains(fake.got.System, "no code fence markers") {
		t.Errorf("system prompt = %q", fake.got.System)
	}
	if got := readFile(t, path); got != readme {
		t.Errorf("file = %q, want the whole response", got)
	}
}

func TestEdit_LogFile(t *testing.T) {
	a, _ := testApp(t, &fakeCompleter{content: greetReply})
	path := greetFile(t)
	logPath := filepath.Join(t.TempDir(), "code-edit.log")

	res := execute(t, a, "", "--log-file", logPath, "-f", path, "-p", "add a docstring")
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}

	logs := readFile(t, logPath)
	for _, want := range []string{
		`"run_id"`,
		`"msg":"model selected"`,
		`"provider":"google"`,
		`"msg":"edit applied"`,
		`"msg":"response received"`,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("log file missing %s:\n%s", want, logs)
		}
	}
	if strings.Contains(res.stderr, "edit applied") {
		t.Errorf("info records should not reach stderr at the default level:\n%s", res.stderr)
	}
}
