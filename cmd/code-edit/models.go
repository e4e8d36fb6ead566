package main

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/code-edit/internal/config"
	"github.com/gorewood/code-edit/internal/llm"
	"github.com/gorewood/code-edit/internal/output"
	"github.com/gorewood/code-edit/internal/prompt"
)

// newModelsCmd creates the models command.
func newModelsCmd(a *app) *cobra.Command {
	var flags modelFlags

	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model-info"},
		Short:   "Show the selected model, providers, aliases and prompt templates",
		Long: `Show which provider and model an edit would use, whether its API key is
set, every supported provider with its model aliases, and the available
system prompt templates.

Examples:
  code-edit models
  code-edit models --model sonnet
  code-edit model-info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModels(cmd, a, &flags)
		},
	}
	addModelFlags(cmd, &flags)
	return cmd
}

func runModels(cmd *cobra.Command, a *app, f *modelFlags) error {
	printer := newPrinter(cmd)

	s, err := a.resolveSettings(cmd, f)
	if err != nil {
		printer.Error(err)
		return err
	}

	provider, model, envVar := llm.Resolve(s.Model, s.Provider)
	keySet := envVar == "" || os.Getenv(envVar) != ""
	infos := llm.ProviderInfos()
	templates := prompt.DefaultDirs(a.workDir, config.Dir()).List()

	if printer.IsJSON() {
		return printModelsJSON(printer, s, provider, model, envVar, keySet, infos, templates)
	}

	styles := printer.Styles()
	printer.Section("Selected")
	printer.KeyValue("Provider", string(provider))
	printer.KeyValue("Model", model)
	if envVar != "" {
		status := styles.Error.Render("not set")
		if keySet {
			status = styles.Success.Render("set")
		}
		printer.KeyValue("API key", envVar+" ("+status+")")
	} else {
		printer.KeyValue("Endpoint", llm.LocalServerURL())
	}
	printer.KeyValue("Temperature", formatFloat(s.Temperature))
	printer.KeyValue("Timeout", s.Timeout.String())
	printer.KeyValue("Prompt", s.Template)
	if cfg := a.config(); len(cfg.Sources) > 0 {
		printer.KeyValue("Config", strings.Join(cfg.Sources, ", "))
	}

	printer.Section("Providers")
	for _, info := range infos {
		auth := "(no API key needed)"
		if info.EnvVar != "" {
			auth = info.EnvVar
		}
		printer.Print("  %-12s %s\n", info.Name, auth)
		for _, alias := range sortedAliases(info.Aliases) {
			printer.Print("    %-12s → %s\n", alias[0], alias[1])
		}
	}

	printer.Section("Prompts")
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		source := t.Source
		if t.Overrides != "" {
			source += " (overrides " + t.Overrides + ")"
		}
		rows = append(rows, []string{t.Name, source, t.Description})
	}
	printer.Table([]string{"NAME", "SOURCE", "DESCRIPTION"}, rows)
	return nil
}

func printModelsJSON(
	printer *output.Printer, s settings,
	provider llm.Provider, model, envVar string, keySet bool,
	infos []llm.ProviderInfo, templates []prompt.TemplateInfo,
) error {
	type jsonAlias struct {
		Alias string `json:"alias"`
		Model string `json:"model"`
	}
	type jsonProvider struct {
		Provider string      `json:"provider"`
		EnvVar   string      `json:"env_var,omitempty"`
		KeySet   bool        `json:"key_set"`
		Aliases  []jsonAlias `json:"aliases"`
	}
	type jsonPrompt struct {
		Name        string `json:"name"`
		Source      string `json:"source"`
		Description string `json:"description,omitempty"`
		Overrides   string `json:"overrides,omitempty"`
	}
	type jsonSelected struct {
		Provider    llm.Provider `json:"provider"`
		Model       string       `json:"model"`
		EnvVar      string       `json:"env_var"`
		KeySet      bool         `json:"key_set"`
		Temperature float64      `json:"temperature"`
		Timeout     string       `json:"timeout"`
		Prompt      string       `json:"prompt"`
	}

	providers := make([]jsonProvider, 0, len(infos))
	for _, info := range infos {
		jp := jsonProvider{Provider: info.Name, EnvVar: info.EnvVar, KeySet: info.KeySet, Aliases: []jsonAlias{}}
		for _, a := range sortedAliases(info.Aliases) {
			jp.Aliases = append(jp.Aliases, jsonAlias{Alias: a[0], Model: a[1]})
		}
		providers = append(providers, jp)
	}

	prompts := make([]jsonPrompt, 0, len(templates))
	for _, t := range templates {
		prompts = append(prompts, jsonPrompt{Name: t.Name, Source: t.Source, Description: t.Description, Overrides: t.Overrides})
	}

	return printer.WriteJSON(struct {
		Selected  jsonSelected   `json:"selected"`
		Providers []jsonProvider `json:"providers"`
		Prompts   []jsonPrompt   `json:"prompts"`
	}{
		Selected: jsonSelected{
			Provider:    provider,
			Model:       model,
			EnvVar:      envVar,
			KeySet:      keySet,
			Temperature: s.Temperature,
			Timeout:     s.Timeout.String(),
			Prompt:      s.Template,
		},
		Providers: providers,
		Prompts:   prompts,
	})
}

// sortedAliases returns alias→model pairs sorted by alias name.
func sortedAliases(aliases map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(aliases))
	for alias, model := range aliases {
		pairs = append(pairs, [2]string{alias, model})
	}
	slices.SortFunc(pairs, func(a, b [2]string) int {
		return strings.Compare(a[0], b[0])
	})
	return pairs
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
