// Package main provides the entry point for the code-edit CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/gorewood/code-edit/internal/config"
	"github.com/gorewood/code-edit/internal/edit"
	"github.com/gorewood/code-edit/internal/envfile"
	"github.com/gorewood/code-edit/internal/llm"
	"github.com/gorewood/code-edit/internal/logs"
	"github.com/gorewood/code-edit/internal/output"
)

// Build info set via ldflags at build time by goreleaser.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2024-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// completerFactory builds the model client. Tests swap in a fake.
type completerFactory func(model string, provider llm.Provider) (edit.Completer, error)

func newLLMCompleter(model string, provider llm.Provider) (edit.Completer, error) {
	return llm.New(model, provider)
}

// app is the state shared by every command of one invocation.
// cfg and log are set in the root PersistentPreRunE.
type app struct {
	newCompleter completerFactory
	workDir      string
	cfg          *config.Config
	log          *logs.Logger
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Close()
		a.log = nil
	}
}

// isJSONMode reads the --json persistent flag from the command hierarchy.
func isJSONMode(cmd *cobra.Command) bool {
	flag := cmd.Flags().Lookup("json")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("json")
	}
	return flag != nil && flag.Value.String() == "true"
}

// colorMode reads the --color persistent flag.
func colorMode(cmd *cobra.Command) string {
	flag := cmd.Flags().Lookup("color")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("color")
	}
	if flag == nil {
		return output.ColorAuto
	}
	return flag.Value.String()
}

// useColor reports whether human output on cmd's stdout gets colors.
func useColor(cmd *cobra.Command) bool {
	return output.UseColor(colorMode(cmd), cmd.OutOrStdout())
}

func newPrinter(cmd *cobra.Command) *output.Printer {
	return output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd)).
		WithStderr(cmd.ErrOrStderr())
}

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	a := &app{newCompleter: newLLMCompleter}
	defer a.close()

	cmd := newRootCmdInternal(a)
	err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion()))
	return output.GetExitCode(err)
}

// newRootCmd creates the root command for the code-edit CLI.
func newRootCmd() *cobra.Command {
	return newRootCmdInternal(&app{newCompleter: newLLMCompleter})
}

// newRootCmdInternal creates the root command around an injected app.
// The root command itself performs an edit.
func newRootCmdInternal(a *app) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "code-edit",
		Short: "Edit a source file with an LLM",
		Long: `code-edit sends one file and a natural-language instruction to an LLM
and writes back the model's rewrite.

Review before writing with --preview, --diff or --confirm, write somewhere
else with --output, and keep a copy of the original with --backup.

Examples:
  code-edit -f greet.py -p "add a docstring" --preview
  code-edit -f main.go -P change.txt --backup
  code-edit -f app.js -p "use const" -o app.new.js --model sonnet
  code-edit models`,
		Version:       buildVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdit(cmd, a, flags)
		},
	}

	// Env files, logging and config are set up before any subcommand runs.
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(cmd)
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		a.close()
		return nil
	}

	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("color", output.ColorAuto, "Color output: auto, always, never")
	cmd.PersistentFlags().String("log-level", logs.DefaultLevel, "Log level on stderr: debug, info, warn, error")
	cmd.PersistentFlags().String("log-file", "", "Append JSON debug logs to this file")

	addEditFlags(cmd, &flags)

	lipgloss.SetHasDarkBackground(true)

	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "agent", Title: "Agent Commands:"})
	addGroupedCommand(cmd, newEditCmd(a), "core")
	addGroupedCommand(cmd, newModelsCmd(a), "core")
	addGroupedCommand(cmd, newServeCmd(a), "agent")

	return cmd
}

// addGroupedCommand adds a subcommand with a group assignment.
func addGroupedCommand(parent *cobra.Command, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}

// setup loads env files, the logger and config for one invocation.
func (a *app) setup(cmd *cobra.Command) error {
	printer := newPrinter(cmd)

	mode := colorMode(cmd)
	if err := output.ValidateColorMode(mode); err != nil {
		printer.Error(err)
		return err
	}
	switch mode {
	case output.ColorAlways:
		lipgloss.SetColorProfile(termenv.ANSI256)
	case output.ColorNever:
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	level, _ := cmd.Flags().GetString("log-level")
	logFile, _ := cmd.Flags().GetString("log-file")
	logger, err := logs.New(logs.Options{Level: level, File: logFile, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		userErr := output.NewUserError(err.Error())
		printer.Error(userErr)
		return userErr
	}
	a.log = logger

	loaded := loadEnvFiles()
	for _, l := range loaded {
		logger.Debug("env file loaded", "path", l.Path, "keys", len(l.Keys))
	}

	if a.workDir == "" {
		if a.workDir, err = os.Getwd(); err != nil {
			sysErr := output.NewSystemErrorWithCause("cannot determine working directory", err)
			printer.Error(sysErr)
			return sysErr
		}
	}

	cfg, err := config.Load(a.workDir)
	if err != nil {
		cfgErr := output.NewConfigError(err.Error())
		printer.Error(cfgErr)
		return cfgErr
	}
	a.cfg = cfg
	logger.Debug("config resolved", "sources", cfg.Sources)
	return nil
}

// loadEnvFiles loads env files in priority order. First match for each
// variable wins; environment variables already set always take precedence.
//
// Resolution order:
//  1. $CWD/.env.local        (per-project override, gitignored)
//  2. $CWD/.env              (per-project)
//  3. ~/.config/code-edit/env (global fallback)
func loadEnvFiles() []envfile.Loaded {
	paths := []string{".env.local", ".env"}
	if dir := config.Dir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "env"))
	}
	loaded, _ := envfile.LoadAll(paths...)
	return loaded
}
