package cli

import (
	"flag"
	"fmt"
	"sort"
	"time"
)

func newResourcesCommand(app *App) *Command {
	flags := flag.NewFlagSet("resources", flag.ContinueOnError)

	cmd := &Command{
		Name:        "resources",
		Description: "Show a live system resource snapshot",
		Flags:       flags,
	}
	cmd.Run = func(args []string) error {
		if err := flags.Parse(args); err != nil {
			return err
		}
		return runResources(app)
	}
	return cmd
}

func runResources(app *App) error {
	snap, err := app.Orch.Usage()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Memory: %.1f/%.1f MB available (%.1f%% used)\n",
		snap.Memory.AvailableMB, snap.Memory.TotalMB, snap.Memory.Percent)
	fmt.Fprintf(app.Out, "CPU:    %d cores, %.1f%% busy (%.2f cores available)\n",
		snap.CPU.Cores, snap.CPU.Percent, snap.AvailableCores())
	fmt.Fprintf(app.Out, "Disk:   %.1f/%.1f MB free (%.1f%% used)\n",
		snap.Disk.FreeMB, snap.Disk.TotalMB, snap.Disk.Percent)
	fmt.Fprintf(app.Out, "Docker: %v\n", app.Manager.DockerAvailable())

	if len(snap.Processes) > 0 {
		fmt.Fprintln(app.Out, "Tracked processes:")

		pids := make([]int32, 0, len(snap.Processes))
		for pid := range snap.Processes {
			pids = append(pids, pid)
		}
		sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

		for _, pid := range pids {
			proc := snap.Processes[pid]
			fmt.Fprintf(app.Out, "  %d %s: %.1f MB, %.1f%% CPU, up %s\n",
				pid, proc.Name, proc.MemoryMB, proc.CPUPercent,
				proc.Runtime.Round(time.Second))
		}
	}
	return nil
}
