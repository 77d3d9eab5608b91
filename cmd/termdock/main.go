package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1broseidon/termdock/internal/config"
	"github.com/1broseidon/termdock/internal/ipc"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "width":
		os.Exit(runWidth(os.Args[2:]))
	case "side":
		os.Exit(runSide(os.Args[2:]))
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "resync":
		os.Exit(runResync(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: termdock <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the termdock daemon (foreground)")
	fmt.Fprintln(w, "  status              Show dock status")
	fmt.Fprintln(w, "  width <px>          Set the panel width (clamped to the configured range)")
	fmt.Fprintln(w, "  side <left|right>   Dock the panel to the left or right edge")
	fmt.Fprintln(w, "  toggle side|width   Flip the dock side or collapse/expand the panel")
	fmt.Fprintln(w, "  resync              Re-dock the panel now")
	fmt.Fprintln(w, "  reload              Ask the daemon to reload its configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config init         Write the default configuration file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'termdock <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set that prints usage to stderr.
func newFlagSet(name, usage, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		if description != "" {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, description)
		}
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and reports the exit code to use when parsing ends
// the command.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "termdock status", "Show dock status via IPC.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:    %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "dock_side:         %s\n", status.DockSide)
	fmt.Fprintf(w, "panel_width:       %d (range %d-%d)\n", status.PanelWidth, status.MinWidth, status.MaxWidth)
	fmt.Fprintf(w, "primary_attached:  %v\n", status.PrimaryAttached)
	fmt.Fprintf(w, "panel_present:     %v\n", status.PanelPresent)
	fmt.Fprintf(w, "move_generation:   %d\n", status.MoveGeneration)
	fmt.Fprintf(w, "resize_generation: %d\n", status.ResizeGeneration)
	if status.LastSyncMS != nil {
		fmt.Fprintf(w, "last_sync_ms:      %d\n", *status.LastSyncMS)
	} else {
		fmt.Fprintln(w, "last_sync_ms:      never")
	}
	fmt.Fprintf(w, "uptime_seconds:    %d\n", status.UptimeSeconds)
}

func runWidth(args []string) int {
	fs := newFlagSet("width", "termdock width <px>", "Set the panel width in logical pixels. Out of range values are clamped.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	requested, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid width %q: must be an integer\n", fs.Arg(0))
		return 2
	}

	width, err := ipc.NewClient().SetPanelWidth(requested)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("panel_width: %d\n", width)
	return 0
}

func runSide(args []string) int {
	fs := newFlagSet("side", "termdock side <left|right>", "Dock the panel to the left or right edge of the primary window.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	side, err := ipc.NewClient().SetDockSide(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("dock_side: %s\n", side)
	return 0
}

func runToggle(args []string) int {
	fs := newFlagSet("toggle", "termdock toggle side|width", "Flip the dock side, or switch the panel between its minimum and maximum width.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	switch fs.Arg(0) {
	case "side":
		side, err := client.ToggleSide()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("dock_side: %s\n", side)
	case "width":
		width, err := client.ToggleWidth()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("panel_width: %d\n", width)
	default:
		fmt.Fprintf(os.Stderr, "Unknown toggle: %s\n", fs.Arg(0))
		fs.Usage()
		return 2
	}
	return 0
}

func runResync(args []string) int {
	fs := newFlagSet("resync", "termdock resync", "Recompute the panel rectangle and apply it now.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "resync takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := ipc.NewClient().Resync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !res.Applied {
		fmt.Printf("not applied: %s\n", res.Reason)
		return 0
	}
	fmt.Println("resync: ok")
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "termdock reload", "Ask the running daemon to reload its configuration file.")
	if rc, ok := parseFlags(fs, args); !ok {
		return rc
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  termdock config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  termdock config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  termdock config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "  termdock config init [--force]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/termdock/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/termdock/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/termdock/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		force := fs.Bool("force", false, "Overwrite an existing config file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if _, err := os.Stat(path); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", path)
			return 1
		}
		if err := config.DefaultConfig().Save(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("wrote %s\n", path)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
