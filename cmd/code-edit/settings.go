package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/code-edit/internal/config"
	"github.com/gorewood/code-edit/internal/edit"
	"github.com/gorewood/code-edit/internal/llm"
	"github.com/gorewood/code-edit/internal/logs"
	"github.com/gorewood/code-edit/internal/output"
	"github.com/gorewood/code-edit/internal/prompt"
)

// modelFlags are the model and tuning flags shared by edit and serve.
type modelFlags struct {
	model        string
	provider     string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	contextLines int
	template     string
}

func addModelFlags(cmd *cobra.Command, f *modelFlags) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name or alias (e.g. flash, sonnet, gpt-5-mini); default from config, else "+llm.DefaultModel)
	cmd.Flags().StringVar(&f.provider, "provider", "", "Provider (anthropic, openai, google, local); inferred if omitted")
	cmd.Flags().Float64Var(&f.temperature, "temperature", config.DefaultTemperature, "Sampling temperature (0-2)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "Maximum output tokens (0 uses the provider default)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "Timeout for the model request")
	cmd.Flags().IntVar(&f.contextLines, "context", config.DefaultContextLines, "Context lines around each diff hunk")
	cmd.Flags().StringVar(&f.template, "template", "", "System prompt template (default "+prompt.DefaultName+")")
}

// settings are the effective values after layering flags over config.
type settings struct {
	Model        string
	Provider     llm.Provider
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	ContextLines int
	BackupSuffix string
	Template     string
}

// resolveSettings applies flag > project config > global config > default.
// Bad flag values are user errors; bad config values are config errors.
func (a *app) resolveSettings(cmd *cobra.Command, f *modelFlags) (settings, error) {
	cfg := a.config()
	changed := cmd.Flags().Changed

	s := settings{
		Model:        cfg.Model,
		Provider:     llm.Provider(cfg.Provider),
		Temperature:  cfg.EffectiveTemperature(),
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.EffectiveTimeout(),
		ContextLines: cfg.EffectiveContextLines(),
		BackupSuffix: cfg.EffectiveBackupSuffix(),
		Template:     cfg.SystemPrompt,
	}

	if !llm.ValidProvider(cfg.Provider) {
		return s, output.NewConfigError(fmt.Sprintf("unknown provider %q in config (use %v)", cfg.Provider, llm.SupportedProviders()))
	}

	if changed("model") {
		s.Model = f.model
	}
	if changed("provider") {
		if !llm.ValidProvider(f.provider) {
			return s, output.NewUserError(fmt.Sprintf("unknown provider %q (use %v)", f.provider, llm.SupportedProviders()))
		}
		s.Provider = llm.Provider(f.provider)
	}
	if changed("temperature") {
		if f.temperature < 0 || f.temperature > 2 {
			return s, output.NewUserError(fmt.Sprintf("--temperature must be between 0 and 2, got %g", f.temperature))
		}
		s.Temperature = f.temperature
	}
	if changed("max-tokens") {
		if f.maxTokens < 0 {
			return s, output.NewUserError("--max-tokens must not be negative")
		}
		s.MaxTokens = f.maxTokens
	}
	if changed("timeout") {
		if f.timeout <= 0 {
			return s, output.NewUserError("--timeout must be positive")
		}
		s.Timeout = f.timeout
	}
	if changed("context") {
		if f.contextLines < 0 {
			return s, output.NewUserError("--context must not be negative")
		}
		s.ContextLines = f.contextLines
	}
	if changed("template") {
		s.Template = f.template
	}
	if s.Template == "" {
		s.Template = prompt.DefaultName
	}

	return s, nil
}

// modelInfo is implemented by completers that know their provider and model,
// such as *llm.Client.
type modelInfo interface {
	Provider() llm.Provider
	Model() string
}

// newService builds the model client and loads the system prompt.
// The client comes first so a missing credential is reported before any
// file is read.
func (a *app) newService(cmd *cobra.Command, s settings) (*edit.Service, error) {
	log := a.logger()

	completer, err := a.newCompleter(s.Model, s.Provider)
	if err != nil {
		return nil, err
	}
	if info, ok := completer.(modelInfo); ok {
		log.Info("model selected", "provider", info.Provider(), "model", info.Model())
	}

	tmpl, err := prompt.DefaultDirs(a.workDir, config.Dir()).Load(s.Template)
	if err != nil {
		if cmd.Flags().Changed("template") {
			return nil, output.NewUserError(err.Error())
		}
		return nil, output.NewConfigError(err.Error())
	}
	log.Debug("system prompt loaded", "template", tmpl.Name, "source", tmpl.Source)

	return &edit.Service{
		Completer:    completer,
		Logger:       log,
		System:       tmpl.Content,
		Temperature:  llm.Float(s.Temperature),
		MaxTokens:    s.MaxTokens,
		ContextLines: s.ContextLines,
		RawOutput:    tmpl.RawOutput(),
	}, nil
}

func (a *app) config() *config.Config {
	if a.cfg == nil {
		return &config.Config{}
	}
	return a.cfg
}

func (a *app) logger() *slog.Logger {
	if a.log == nil {
		return logs.Discard()
	}
	return a.log.Logger
}
