package cli

import (
	"flag"
	"fmt"
)

func newTargetCommand(app *App) *Command {
	cmd := &Command{
		Name:        "target",
		Description: "Manage target workspaces",
		Flags:       flag.NewFlagSet("target", flag.ContinueOnError),
	}
	cmd.Run = func(args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("usage: prowl target <add|list|select|show> [domain]")
		}
		switch args[0] {
		case "add":
			if len(args) < 2 {
				return fmt.Errorf("usage: prowl target add <domain>")
			}
			return runTargetAdd(app, args[1])
		case "list":
			return runTargetList(app)
		case "select":
			if len(args) < 2 {
				return fmt.Errorf("usage: prowl target select <domain>")
			}
			return runTargetSelect(app, args[1])
		case "show":
			return runTargetShow(app)
		default:
			return fmt.Errorf("unknown target subcommand: %s", args[0])
		}
	}
	return cmd
}

func runTargetAdd(app *App, domain string) error {
	if err := app.Targets.Add(domain); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Added target %s\n", domain)

	// First target becomes the selection automatically.
	if app.Store.GetString(currentTargetKey, "") == "" {
		return runTargetSelect(app, domain)
	}
	return nil
}

func runTargetList(app *App) error {
	targets, err := app.Targets.List()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(app.Out, "No targets")
		return nil
	}

	current := app.Store.GetString(currentTargetKey, "")
	for _, domain := range targets {
		marker := " "
		if domain == current {
			marker = "*"
		}
		fmt.Fprintf(app.Out, "%s %s\n", marker, domain)
	}
	return nil
}

func runTargetSelect(app *App, domain string) error {
	if !app.Targets.Exists(domain) {
		return fmt.Errorf("target not found: %s", domain)
	}
	if err := app.Store.Set(currentTargetKey, domain); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Selected target %s\n", domain)
	return nil
}

func runTargetShow(app *App) error {
	current := app.Store.GetString(currentTargetKey, "")
	if current == "" {
		fmt.Fprintln(app.Out, "No target selected")
		return nil
	}

	meta, err := app.Targets.Metadata(current)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Target: %s\n", meta.Domain)
	fmt.Fprintf(app.Out, "Added:  %s\n", meta.Added.Format("2006-01-02 15:04:05 MST"))
	if meta.Notes != "" {
		fmt.Fprintf(app.Out, "Notes:  %s\n", meta.Notes)
	}
	for _, scope := range meta.Scope {
		fmt.Fprintf(app.Out, "Scope:  %s\n", scope)
	}
	return nil
}
