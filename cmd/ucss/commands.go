package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"ucss/config"
	"ucss/state"
	"ucss/style"
)

// inspectReport is the YAML shape printed by the inspect command.
type inspectReport struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Namespace    string            `yaml:"namespace,omitempty"`
	Version      string            `yaml:"version,omitempty"`
	Author       string            `yaml:"author,omitempty"`
	Preprocessor string            `yaml:"preprocessor,omitempty"`
	Domains      []string          `yaml:"domains,omitempty"`
	Variables    []inspectVariable `yaml:"variables,omitempty"`
	Assets       []string          `yaml:"assets,omitempty"`
	Warnings     []string          `yaml:"warnings,omitempty"`
	Errors       []string          `yaml:"errors,omitempty"`
}

type inspectVariable struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Label   string   `yaml:"label,omitempty"`
	Default string   `yaml:"default,omitempty"`
	Options []string `yaml:"options,omitempty"`
}

func parseFile(ctx *state.LocalEnv, fname string, values map[string]string) (style.ParseResult, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return style.ParseResult{}, fmt.Errorf("unable to read style: %w", err)
	}
	engine := style.NewEngine(ctx.Cfg.Engine.CacheCapacity, ctx.Log)
	parser := style.NewParser(ctx.Log, engine)
	return parser.ParseWithValues(string(data), values), nil
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one FILE argument")
	}
	res, err := parseFile(env, cmd.Args().First(), nil)
	if err != nil {
		return err
	}

	rep := inspectReport{
		ID:           res.Meta.ID,
		Name:         res.Meta.Name,
		Namespace:    res.Meta.Namespace,
		Version:      res.Meta.Version,
		Author:       res.Meta.Author,
		Preprocessor: res.Meta.Preprocessor,
		Warnings:     res.Warnings,
		Errors:       res.Errors,
	}
	for _, r := range res.Meta.Domains {
		rep.Domains = append(rep.Domains, fmt.Sprintf("%s(%q)", r.Kind, r.Pattern))
	}
	for _, d := range res.Meta.OrderedVariables() {
		v := inspectVariable{Name: d.Name, Type: string(d.Type), Label: d.Label, Default: d.Default}
		for _, o := range d.Options {
			v.Options = append(v.Options, o.Value)
		}
		rep.Variables = append(rep.Variables, v)
	}
	for _, a := range res.Meta.Assets {
		rep.Assets = append(rep.Assets, a.URL)
	}

	out, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("unable to render report: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runDumpConfig(ctx context.Context, _ *cli.Command) error {
	env := state.EnvFromContext(ctx)
	data, err := config.Dump(env.Cfg)
	if err != nil {
		return fmt.Errorf("unable to render configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runCompile(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one FILE argument")
	}

	values := map[string]string{}
	for _, kv := range cmd.StringSlice("var") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, expected NAME=VALUE", kv)
		}
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		values[name] = value
	}

	res, err := parseFile(env, cmd.Args().First(), values)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		env.Log.Warn(w)
	}
	for _, e := range res.Errors {
		env.Log.Error(e)
	}

	output := cmd.String("output")
	if output == "" {
		fmt.Print(res.CSS)
		return nil
	}
	output = filepath.Join(filepath.Dir(output), config.CleanFileName(filepath.Base(output)))
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("unable to create output: %w", err)
	}
	_, werr := f.WriteString(res.CSS)
	err = multierr.Append(werr, f.Close())
	if err != nil {
		return fmt.Errorf("unable to write output '%s': %w", output, err)
	}
	env.Log.Info("Wrote compiled stylesheet", zap.String("output", output), zap.Int("bytes", len(res.CSS)))
	return nil
}
