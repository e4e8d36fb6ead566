// Package edit runs the code-edit pipeline: resolve the inputs, ask the
// model for a rewrite, extract and diff it, then write it out.
package edit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gorewood/code-edit/internal/output"
)

// LargeFileThreshold is the size above which callers should warn that the
// request may be slow, costly or exceed the model's context.
const LargeFileThreshold = 256 * 1024

// Options are the raw user inputs, as given on the command line.
type Options struct {
	Prompt     string // inline instruction
	PromptFile string // path to a file holding the instruction
	File       string // target file
}

// Request is the resolved, immutable input to one edit.
type Request struct {
	Instruction string
	SourcePath  string
	// SourceText is exactly the bytes read from SourcePath.
	SourceText string
	Language   string
	// Mode is the source file's permission bits.
	Mode os.FileMode
}

// Large reports whether the source exceeds LargeFileThreshold.
func (r *Request) Large() bool {
	return len(r.SourceText) > LargeFileThreshold
}

// Validate checks flag combinations without touching the filesystem.
func (o Options) Validate() error {
	switch {
	case o.Prompt != "" && o.PromptFile != "":
		return output.NewUserError("--prompt and --prompt-file are mutually exclusive")
	case o.Prompt == "" && o.PromptFile == "":
		return output.NewUserError("either --prompt or --prompt-file must be specified")
	case o.File == "":
		return output.NewUserError("--file is required")
	}
	return nil
}

// Resolve validates opts, loads the instruction and reads the target file.
func Resolve(opts Options) (*Request, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	instruction := opts.Prompt
	if opts.PromptFile != "" {
		data, _, err := readRegularFile(opts.PromptFile)
		if err != nil {
			return nil, err
		}
		instruction = string(data)
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, output.NewUserError("instruction is empty")
	}

	data, info, err := readRegularFile(opts.File)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, output.NewFileError(opts.File, errors.New("not valid UTF-8 text"))
	}

	return &Request{
		Instruction: instruction,
		SourcePath:  opts.File,
		SourceText:  string(data),
		Language:    DetectLanguage(opts.File),
		Mode:        info.Mode().Perm(),
	}, nil
}

func readRegularFile(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, output.NewFileError(path, unwrapPathError(err))
	}
	if info.IsDir() {
		return nil, nil, output.NewFileError(path, errors.New("is a directory"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, output.NewFileError(path, unwrapPathError(err))
	}
	return data, info, nil
}

// unwrapPathError drops the *fs.PathError wrapper, whose text repeats the
// path already in the message.
func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

var languageByExt = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "bash",
	".sql":   "sql",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
}

// DetectLanguage maps a file extension to a language name, or "" if unknown.
func DetectLanguage(path string) string {
	return languageByExt[strings.ToLower(filepath.Ext(path))]
}
