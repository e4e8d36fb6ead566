// Package output provides structured output handling for the code-edit CLI.
//
// Every command writes through a Printer so that human and --json output
// stay consistent, and every failure is an *ExitError whose code becomes the
// process exit status.
//
// # Printer
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonMode, output.UseColor(colorMode, cmd.OutOrStdout()))
//	printer.WithStderr(cmd.ErrOrStderr())
//
//	printer.Success(map[string]any{"message": "Wrote changes to greet.py"})
//	printer.Warn("no fenced code block found; using the whole response")
//	printer.Error(err)
//
// In JSON mode success data is encoded as an object and errors as
// {"error": "message", "code": N}.
//
// # Styling
//
// Styles are lipgloss styles that collapse to plain text when color is off
// (not a TTY, NO_COLOR set, or --color never). The diff renderer uses the
// Added, Removed, Hunk and Header styles.
//
// # Exit Codes
//
//	output.ExitSuccess       // 0: success, preview, declined confirmation
//	output.ExitUserError     // 1: usage error, missing/unreadable input file
//	output.ExitSystemError   // 2: write or other I/O failure
//	output.ExitConfigError   // 3: missing credential, bad config file
//	output.ExitProviderError // 4: network/API failure, empty response
package output
