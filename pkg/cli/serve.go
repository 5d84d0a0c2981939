package cli

import (
	"flag"

	"github.com/prowlsec/prowl/pkg/api"
	"github.com/prowlsec/prowl/pkg/schedule"
)

func newServeCommand(app *App) *Command {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := flags.String("addr", ":8080", "Listen address")

	cmd := &Command{
		Name:        "serve",
		Description: "Serve the HTTP API and run scheduled plugins",
		Flags:       flags,
	}
	cmd.Run = func(args []string) error {
		if err := flags.Parse(args); err != nil {
			return err
		}
		return runServe(app, *addr)
	}
	return cmd
}

func runServe(app *App, addr string) error {
	if err := app.Store.Watch(); err != nil {
		app.Log.WithError(err).Warn("Config hot reload disabled")
	}
	defer app.Store.Close()

	sched := schedule.New(app.Orch, app.Log)
	for _, entry := range scheduleEntries(app) {
		if _, err := sched.Add(entry.cron, entry.plugin, entry.target, entry.options); err != nil {
			app.Log.WithError(err).WithField("plugin", entry.plugin).Warn("Skipping invalid schedule")
		}
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(app.Orch, app.Targets, app.Metrics, app.Log)
	return server.ListenAndServe(addr)
}

type scheduleEntry struct {
	cron    string
	plugin  string
	target  string
	options map[string]any
}

// scheduleEntries reads the "schedules" config list. Each item is a map with
// cron, plugin, and optional target and options keys; malformed items are
// dropped.
func scheduleEntries(app *App) []scheduleEntry {
	raw, ok := app.Store.Get("schedules", nil).([]any)
	if !ok {
		return nil
	}

	var entries []scheduleEntry
	for _, item := range raw {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}

		entry := scheduleEntry{}
		if entry.cron, ok = fields["cron"].(string); !ok {
			continue
		}
		if entry.plugin, ok = fields["plugin"].(string); !ok {
			continue
		}
		entry.target, _ = fields["target"].(string)
		entry.options, _ = fields["options"].(map[string]any)
		entries = append(entries, entry)
	}
	return entries
}
