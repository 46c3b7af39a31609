// Package main is the entry point for the inkstorm tool engine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/editor"
	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/tool"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	configPath string
	toolPaths  []string
	watch      bool
}

func run() int {
	opts := parseFlags()

	e, err := editor.New(editor.Options{
		ConfigPath: opts.configPath,
		ToolPaths:  opts.toolPaths,
		Version:    version,
		Watch:      opts.watch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx := context.Background()
	defer e.Shutdown(ctx)

	if err := e.Prepare(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: tool preparation: %v\n", err)
		return 1
	}

	printTools(e.Registry())

	if err := printDemoDocument(e); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.watch {
		fmt.Println("Watching for configuration changes. Press Ctrl+C to exit.")
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
	}

	return 0
}

// printTools lists every configured tool with its settled status.
func printTools(reg *tool.Registry) {
	fmt.Println("Tools:")
	for _, name := range reg.Names() {
		h, ok := reg.Get(name)
		if !ok {
			continue
		}

		status := "ok"
		if err := h.Err(); err != nil {
			status = "failed: " + err.Error()
		}
		origin := ""
		if h.Internal() {
			origin = "  (built-in)"
		}
		fmt.Printf("  %-12s %-7s %s%s\n", name, h.Kind(), status, origin)
	}
	fmt.Println()
}

// printDemoDocument saves and prints a small document, exercising the
// block save pipeline including blank discard and stub preservation.
func printDemoDocument(e *editor.Editor) error {
	doc := editor.NewDocument()
	doc.AddBlock("paragraph", map[string]any{"text": "Hello from inkstorm."})
	doc.AddBlock("paragraph", map[string]any{"text": "   "})
	doc.AddBlock("widget", map[string]any{"source": "legacy", "payload": 42})

	rendered, err := e.RenderDocument(doc)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Println("Rendered:")
	for _, line := range rendered {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println()

	saved, err := e.SaveDocument(doc)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	out, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Println("Saved:")
	fmt.Println(string(out))
	return nil
}

func parseFlags() options {
	var opts options
	var toolDirs string
	var logLevel string
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (TOML or YAML)")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&toolDirs, "tools", "", "Comma-separated tool script directories")
	flag.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flag.BoolVar(&opts.watch, "watch", false, "Reload when the configuration file changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Inkstorm - extensible block editor tool engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: inkstorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  inkstorm                        Run with built-in tools only\n")
		fmt.Fprintf(os.Stderr, "  inkstorm -c inkstorm.toml       Run with a configuration file\n")
		fmt.Fprintf(os.Stderr, "  inkstorm -tools ./tools         Load Lua tool scripts\n")
		fmt.Fprintf(os.Stderr, "  inkstorm -c app.toml -watch     Reload on configuration changes\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Inkstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if logLevel != "" {
		if !logging.ValidLevel(logLevel) {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be trace, debug, info, warn, or error)\n", logLevel)
			os.Exit(1)
		}
		// The editor layers environment overrides onto the settings
		// file; the flag rides the same path.
		os.Setenv(config.EnvLogLevel, logLevel)
	}

	for _, dir := range strings.Split(toolDirs, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			opts.toolPaths = append(opts.toolPaths, dir)
		}
	}

	return opts
}
