package cli

import (
	"flag"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

func newConfigCommand(app *App) *Command {
	cmd := &Command{
		Name:        "config",
		Description: "Inspect and edit stored configuration",
		Flags:       flag.NewFlagSet("config", flag.ContinueOnError),
	}
	cmd.Run = func(args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("usage: prowl config <get|set|plugin> ...")
		}
		switch args[0] {
		case "get":
			if len(args) < 2 {
				return fmt.Errorf("usage: prowl config get <key>")
			}
			return runConfigGet(app, args[1])
		case "set":
			if len(args) < 3 {
				return fmt.Errorf("usage: prowl config set <key> <value>")
			}
			return runConfigSet(app, args[1], args[2])
		case "plugin":
			switch len(args) {
			case 2:
				return runConfigPluginShow(app, args[1])
			case 4:
				return runConfigPluginSet(app, args[1], args[2], args[3])
			default:
				return fmt.Errorf("usage: prowl config plugin <name> [<key> <value>]")
			}
		default:
			return fmt.Errorf("unknown config subcommand: %s", args[0])
		}
	}
	return cmd
}

func runConfigGet(app *App, key string) error {
	val := app.Store.Get(key, nil)
	if val == nil {
		return fmt.Errorf("no value for key: %s", key)
	}
	fmt.Fprintf(app.Out, "%v\n", val)
	return nil
}

func runConfigSet(app *App, key, raw string) error {
	if err := app.Store.Set(key, parseValue(raw)); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Set %s\n", key)
	return nil
}

func runConfigPluginShow(app *App, name string) error {
	cfg := app.Store.PluginConfig(name)
	if len(cfg) == 0 {
		fmt.Fprintf(app.Out, "No configuration for %s\n", name)
		return nil
	}

	keys := make([]string, 0, len(cfg))
	for key := range cfg {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(app.Out, "%s: %v\n", key, cfg[key])
	}
	return nil
}

func runConfigPluginSet(app *App, name, key, raw string) error {
	cfg := app.Store.PluginConfig(name)
	cfg[key] = parseValue(raw)
	if err := app.Store.SetPluginConfig(name, cfg); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Set %s.%s\n", name, key)
	return nil
}

// parseValue interprets the literal as YAML so numbers and booleans keep
// their type, falling back to the raw string.
func parseValue(raw string) any {
	var val any
	if err := yaml.Unmarshal([]byte(raw), &val); err != nil || val == nil {
		return raw
	}
	return val
}
