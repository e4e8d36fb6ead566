package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gorewood/code-edit/internal/diff"
	"github.com/gorewood/code-edit/internal/edit"
	"github.com/gorewood/code-edit/internal/output"
)

// editFlags holds all flag values for an edit.
type editFlags struct {
	modelFlags
	prompt     string
	promptFile string
	file       string
	output     string
	preview    bool
	backup     bool
	showDiff   bool
	confirm    bool
}

func addEditFlags(cmd *cobra.Command, f *editFlags) {
	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "Natural-language description of the change")
	cmd.Flags().StringVarP(&f.promptFile, "prompt-file", "P", "", "File containing the change description")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Target file to modify (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the result here instead of over --file")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "Show the diff without writing anything")
	cmd.Flags().BoolVar(&f.backup, "backup", false, "Copy the original to FILE.backup before writing")
	cmd.Flags().BoolVar(&f.showDiff, "diff", false, "Show the diff even when writing in place")
	cmd.Flags().BoolVar(&f.confirm, "confirm", false, "Show the diff and ask before writing")
	addModelFlags(cmd, &f.modelFlags)
}

// newEditCmd creates the explicit edit subcommand. It behaves exactly like
// running code-edit with no subcommand.
func newEditCmd(a *app) *cobra.Command {
	var flags editFlags

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a file with an LLM (default command)",
		Long: `Send a file and an instruction to an LLM and write back its rewrite.

Exactly one of --prompt or --prompt-file is required, along with --file.

Examples:
  code-edit edit -f greet.py -p "add a docstring" --preview
  code-edit edit -f greet.py -p "add type hints" --backup --diff
  code-edit edit -f greet.py -P change.txt -o greet_typed.py`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdit(cmd, a, flags)
		},
	}
	addEditFlags(cmd, &flags)
	return cmd
}

// validateEditFlags checks flag combinations no single flag can.
func validateEditFlags(cmd *cobra.Command, f editFlags) error {
	opts := edit.Options{Prompt: f.prompt, PromptFile: f.promptFile, File: f.file}
	if err := opts.Validate(); err != nil {
		return err
	}
	if f.confirm && f.preview {
		return output.NewUserError("--confirm and --preview are mutually exclusive")
	}
	if f.confirm && isJSONMode(cmd) {
		return output.NewUserError("--confirm cannot be used with --json")
	}
	return nil
}

// runEdit executes one edit: resolve, call the model, show, write.
func runEdit(cmd *cobra.Command, a *app, f editFlags) error {
	printer := newPrinter(cmd)

	if err := validateEditFlags(cmd, f); err != nil {
		printer.Error(err)
		return err
	}

	s, err := a.resolveSettings(cmd, &f.modelFlags)
	if err != nil {
		printer.Error(err)
		return err
	}

	svc, err := a.newService(cmd, s)
	if err != nil {
		printer.Error(err)
		return err
	}

	req, err := edit.Resolve(edit.Options{Prompt: f.prompt, PromptFile: f.promptFile, File: f.file})
	if err != nil {
		printer.Error(err)
		return err
	}

	// JSON mode reports warnings inside the result object.
	var warnings []string
	warn := func(msg string) {
		warnings = append(warnings, msg)
		if !printer.IsJSON() {
			printer.Warn("%s", msg)
		}
	}
	if req.Large() {
		warn(fmt.Sprintf("%s is larger than %d KiB; the model may truncate or refuse it",
			req.SourcePath, edit.LargeFileThreshold/1024))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	result, err := svc.Propose(ctx, req)
	if err != nil {
		a.logger().Error("edit failed", "file", req.SourcePath, "error", err)
		printer.Error(err)
		return err
	}
	for _, w := range result.Warnings() {
		warn(w)
	}

	showDiff := f.preview || f.output != "" || f.showDiff || f.confirm
	if showDiff && !printer.IsJSON() {
		if err := printDiff(printer, result.Diff); err != nil {
			return err
		}
	}

	if f.preview {
		return printPreview(printer, req, result, warnings)
	}

	dest := req.SourcePath
	if f.output != "" {
		dest = f.output
	}

	if f.confirm && result.Changed() {
		if !printer.Confirm(cmd.InOrStdin(), fmt.Sprintf("Apply changes to %s?", dest)) {
			a.logger().Info("changes declined", "file", dest)
			return printer.Success(map[string]any{"message": "No changes written."})
		}
	}

	applied, err := edit.Apply(req, result, edit.ApplyOptions{
		Output:       f.output,
		Backup:       f.backup,
		BackupSuffix: s.BackupSuffix,
	})
	if err != nil {
		printer.Error(err)
		return err
	}
	a.logger().Info("edit applied",
		"path", applied.Path,
		"backup", applied.BackupPath,
		"written", applied.Written,
		"stats", result.Diff.Stats.Summary())

	return printApplied(printer, result, applied, warnings)
}

func printDiff(printer *output.Printer, d *diff.Diff) error {
	if d.Empty() {
		printer.Println(printer.Styles().Muted.Render("No changes proposed."))
		return nil
	}
	if err := diff.Render(printer.Writer(), d, printer.Styles()); err != nil {
		sysErr := output.NewSystemErrorWithCause("failed to print diff", err)
		printer.Error(sysErr)
		return sysErr
	}
	printer.Println(printer.Styles().Dim.Render(d.Stats.Summary()))
	return nil
}

func printPreview(printer *output.Printer, req *edit.Request, result *edit.Result, warnings []string) error {
	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"file":     req.SourcePath,
			"language": req.Language,
			"model":    result.Model,
			"preview":  true,
			"changed":  result.Changed(),
			"diff":     result.Diff.Text,
			"added":    result.Diff.Stats.Added,
			"removed":  result.Diff.Stats.Removed,
			"proposed": result.Proposed,
			"warnings": nonNil(warnings),
		})
	}
	printer.Println(printer.Styles().Muted.Render("Preview only; no changes written."))
	return nil
}

func printApplied(printer *output.Printer, result *edit.Result, applied *edit.Applied, warnings []string) error {
	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"path":        applied.Path,
			"backup_path": applied.BackupPath,
			"written":     applied.Written,
			"model":       result.Model,
			"changed":     result.Changed(),
			"diff":        result.Diff.Text,
			"added":       result.Diff.Stats.Added,
			"removed":     result.Diff.Stats.Removed,
			"warnings":    nonNil(warnings),
		})
	}

	if !applied.Written {
		return printer.Success(map[string]any{"message": "No changes proposed; " + applied.Path + " left as is."})
	}
	if applied.BackupPath != "" {
		printer.Stderr("%s %s\n", printer.Styles().Dim.Render("Backup saved to"), applied.BackupPath)
	}
	return printer.Success(map[string]any{"message": "Successfully wrote changes to " + applied.Path})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
