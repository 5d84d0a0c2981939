package cli

import (
	"context"
	"flag"
	"fmt"
)

func newCheckCommand(app *App) *Command {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)

	cmd := &Command{
		Name:        "check",
		Description: "Check whether a plugin passes local admission",
		Flags:       flags,
	}
	cmd.Run = func(args []string) error {
		if len(args) < 1 || args[0] == "" {
			return fmt.Errorf("usage: prowl check <plugin>")
		}
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		return runCheck(app, args[0])
	}
	return cmd
}

func runCheck(app *App, name string) error {
	admitted, reason, err := app.Orch.Check(context.Background(), name)
	if err != nil {
		return err
	}

	if admitted {
		fmt.Fprintf(app.Out, "%s: admitted (%s)\n", name, reason)
	} else {
		fmt.Fprintf(app.Out, "%s: denied (%s)\n", name, reason)
	}
	return nil
}
