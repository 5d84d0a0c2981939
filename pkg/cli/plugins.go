package cli

import (
	"flag"
	"fmt"
	"sort"
)

func newPluginsCommand(app *App) *Command {
	flags := flag.NewFlagSet("plugins", flag.ContinueOnError)
	category := flags.String("category", "", "Only list plugins in this category")

	cmd := &Command{
		Name:        "plugins",
		Description: "List registered plugins",
		Flags:       flags,
	}
	cmd.Run = func(args []string) error {
		if err := flags.Parse(args); err != nil {
			return err
		}
		return runPlugins(app, *category)
	}
	return cmd
}

func runPlugins(app *App, category string) error {
	listing := app.Orch.ListPlugins(category)
	if len(listing) == 0 {
		fmt.Fprintln(app.Out, "No plugins registered")
		return nil
	}

	categories := make([]string, 0, len(listing))
	for cat := range listing {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		fmt.Fprintf(app.Out, "%s:\n", cat)

		names := make([]string, 0, len(listing[cat]))
		for name := range listing[cat] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			desc := listing[cat][name]
			fmt.Fprintf(app.Out, "  %-20s %-8s %s\n", name, desc.Version, desc.Description)
		}
	}
	return nil
}
