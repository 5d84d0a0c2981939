package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/config"
	"github.com/prowlsec/prowl/pkg/observability"
	"github.com/prowlsec/prowl/pkg/orchestrator"
	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/plugin/builtin"
	"github.com/prowlsec/prowl/pkg/resource"
	"github.com/prowlsec/prowl/pkg/target"
)

// currentTargetKey is the config store key holding the selected target.
const currentTargetKey = "current_target"

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// App wires the core components every command runs against.
type App struct {
	Log      *logrus.Logger
	Store    *config.Store
	Registry *plugin.Registry
	Manager  *resource.Manager
	Metrics  *observability.Metrics
	Orch     *orchestrator.Orchestrator
	Targets  *target.Workspace
	Out      io.Writer
}

// NewApp assembles the full local stack. The data directory defaults to
// "data" and is overridable with PROWL_DATA_DIR.
func NewApp(out io.Writer) (*App, error) {
	if out == nil {
		out = os.Stdout
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(getEnv("PROWL_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	dataDir := getEnv("PROWL_DATA_DIR", "data")

	store, err := config.NewStore(filepath.Join(dataDir, "config"), log)
	if err != nil {
		return nil, err
	}

	targets, err := target.NewWorkspace(filepath.Join(dataDir, "targets"))
	if err != nil {
		return nil, err
	}

	reg := plugin.NewRegistry(log)
	builtin.RegisterAll(reg, log)

	mgr := resource.NewManager(resource.ConfigFromEnv(), log)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.DataDir = dataDir
	orchCfg.Image = store.GetString("image", orchCfg.Image)

	return &App{
		Log:      log,
		Store:    store,
		Registry: reg,
		Manager:  mgr,
		Metrics:  metrics,
		Orch:     orchestrator.New(reg, mgr, orchCfg, log, metrics),
		Targets:  targets,
		Out:      out,
	}, nil
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(app *App) *Command {
	root := &Command{
		Name:        "prowl",
		Description: "prowl - plugin-driven security reconnaissance",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("prowl", flag.ContinueOnError),
	}

	root.Subcommands["plugins"] = newPluginsCommand(app)
	root.Subcommands["run"] = newRunCommand(app)
	root.Subcommands["check"] = newCheckCommand(app)
	root.Subcommands["config"] = newConfigCommand(app)
	root.Subcommands["resources"] = newResourcesCommand(app)
	root.Subcommands["target"] = newTargetCommand(app)
	root.Subcommands["serve"] = newServeCommand(app)

	return root
}

// Execute dispatches to a subcommand by name.
func (c *Command) Execute(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return c.usage(os.Stdout)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
