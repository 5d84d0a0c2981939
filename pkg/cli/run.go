package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/prowlsec/prowl/pkg/orchestrator"
)

func newRunCommand(app *App) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	targetFlag := flags.String("target", "", "Target domain (defaults to the selected target)")
	optionsFlag := flags.String("options", "", "Plugin options as a JSON object")
	containerFlag := flags.Bool("container", false, "Force container dispatch")

	cmd := &Command{
		Name:        "run",
		Description: "Run a plugin against a target",
		Flags:       flags,
	}
	cmd.Run = func(args []string) error {
		// The plugin name comes first; flag parsing stops at the first
		// positional argument otherwise.
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("usage: prowl run <plugin> [--target domain] [--options json] [--container]")
		}
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		return runRun(app, args[0], *targetFlag, *optionsFlag, *containerFlag)
	}
	return cmd
}

func runRun(app *App, name, targetDomain, optionsJSON string, forceContainer bool) error {
	if targetDomain == "" {
		targetDomain = app.Store.GetString(currentTargetKey, "")
	}

	// Per-plugin config provides the option baseline; the --options flag
	// overrides individual keys.
	options := app.Store.PluginConfig(name)
	if optionsJSON != "" {
		overrides := make(map[string]any)
		if err := json.Unmarshal([]byte(optionsJSON), &overrides); err != nil {
			return fmt.Errorf("invalid --options JSON: %w", err)
		}
		for k, v := range overrides {
			options[k] = v
		}
	}

	// Plugins that persist artifacts drop them in the target's workspace
	// unless the caller pointed them elsewhere.
	if _, ok := options["output_dir"]; !ok && targetDomain != "" {
		if entry, found := app.Registry.Resolve(name); found {
			if dir, err := app.Targets.ArtifactDir(targetDomain, entry.Descriptor.Category); err == nil {
				options["output_dir"] = dir
			}
		}
	}

	report := app.Orch.Run(context.Background(), name, targetDomain, options,
		orchestrator.RunOptions{ForceContainer: forceContainer})

	fmt.Fprintf(app.Out, "Run %s (%s dispatch)\n", report.RunID, report.Dispatch)
	if report.Target != "" {
		fmt.Fprintf(app.Out, "Target: %s\n", report.Target)
	}
	fmt.Fprintf(app.Out, "State: %s\n", report.State)
	if report.Elapsed > 0 {
		fmt.Fprintf(app.Out, "Elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
	}
	if report.Result != nil {
		fmt.Fprintf(app.Out, "[%s] %s\n", report.Result.Status, report.Result.Message)
		if len(report.Result.Data) > 0 {
			data, err := json.MarshalIndent(report.Result.Data, "", "  ")
			if err == nil {
				fmt.Fprintln(app.Out, string(data))
			}
		}
	}

	if !report.Succeeded() {
		return fmt.Errorf("plugin run failed")
	}
	return nil
}
