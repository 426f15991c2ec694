// Package main implements the destination connection router CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertbit/grumble"
	"github.com/jedib0t/go-pretty/table"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sqlrouter/pkg/resolver"
	"sqlrouter/pkg/router"
	"sqlrouter/pkg/routing"
	"sqlrouter/pkg/sockops"
)

// CLI banner with version.
const banner = `
  ___  ___  _    ___           _
 / __|/ _ \| |  | _ \___ _  _ | |_ ___ _ _
 \__ \ (_) | |__|   / _ \ || ||  _/ -_) '_|
 |___/\__\_\____|_|_\___/\_,_| \__\___|_|

   TCP Destination Connection Router (v1.0)
   ----------------------------------------

`

// Global state.
var (
	config        *Config        // app config
	currentRouter *router.Router // running router instance
)

// startRouter wires the real socket capability and system resolver into a
// fresh router over the configured destinations.
func startRouter(listenAddr string) error {
	connector := routing.NewConnector(sockops.RealSockOps{}, resolver.NetResolver{})

	r, err := router.NewRouter(
		connector,
		config.DestinationAddrs(),
		routing.StrategyFromName(config.RoutingStrategy),
	)
	if err != nil {
		return err
	}
	r.ConnectTimeout = config.ConnectTimeout()
	r.MaxConnections = config.MaxClientConnections()

	if err := r.Start(listenAddr); err != nil {
		return err
	}

	currentRouter = r
	return nil
}

// RenderDestinationTable formats per-destination statistics into a
// human-readable table.
func RenderDestinationTable(stats []router.DestinationStat) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		"Destination",
		"Connect errors",
		"Degraded",
	})

	for _, s := range stats {
		degraded := ""
		if s.Degraded {
			degraded = "yes"
		}
		t.AppendRow(table.Row{
			s.Destination.String(),
			s.ConnectErrors,
			degraded,
		})
	}

	return t.Render()
}

// AddCommands registers all CLI commands with the application.
func AddCommands(app *grumble.App) {
	// Command to start the router
	app.AddCommand(&grumble.Command{
		Name: "start",
		Help: "start routing client connections to the configured destinations",
		Flags: func(f *grumble.Flags) {
			f.String("l", "listen", "", "listen address override (defaults to bind_address:bind_port)")
		},
		Run: func(c *grumble.Context) error {
			if currentRouter != nil {
				log.Warn().Msg("Router already running. Use 'stop' first")
				return nil
			}

			listenAddr := c.Flags.String("listen")
			if listenAddr == "" {
				listenAddr = config.BindAddr()
			}

			if err := startRouter(listenAddr); err != nil {
				log.Error().Err(err).Msg("Failed to start router")
				return nil
			}

			log.Info().
				Str("listen", currentRouter.Addr().String()).
				Str("strategy", routing.StrategyFromName(config.RoutingStrategy).Name()).
				Msg("Router started successfully")
			return nil
		},
	})
	// Command to stop the router
	app.AddCommand(&grumble.Command{
		Name: "stop",
		Help: "stop the running router and drain client sessions",
		Run: func(c *grumble.Context) error {
			if currentRouter == nil {
				log.Warn().Msg("No router running")
				return nil
			}

			currentRouter.Stop()
			currentRouter = nil
			log.Info().Msg("Router stopped")
			return nil
		},
	})
	// Command to show router status
	app.AddCommand(&grumble.Command{
		Name: "status",
		Help: "show router status and configuration",
		Run: func(c *grumble.Context) error {
			mode := routing.AccessModeFromName(config.Mode)
			strategy := routing.StrategyFromName(config.RoutingStrategy)

			if currentRouter == nil {
				log.Info().
					Str("strategy", strategy.Name()).
					Str("mode", mode.Name()).
					Msg("Router not running")
				return nil
			}

			log.Info().
				Str("listen", currentRouter.Addr().String()).
				Str("strategy", strategy.Name()).
				Str("mode", mode.Name()).
				Int64("active_connections", currentRouter.Active()).
				Msg("Router running")
			return nil
		},
	})
	// Command to list destinations and their statistics
	app.AddCommand(&grumble.Command{
		Name:    "destinations",
		Aliases: []string{"ls"},
		Help:    "list configured destinations and connect error counters",
		Run: func(c *grumble.Context) error {
			if currentRouter != nil {
				c.App.Println(RenderDestinationTable(currentRouter.Stats()))
				return nil
			}

			stats := make([]router.DestinationStat, 0, len(config.Destinations))
			for _, dest := range config.DestinationAddrs() {
				stats = append(stats, router.DestinationStat{Destination: dest})
			}
			c.App.Println(RenderDestinationTable(stats))
			return nil
		},
	})
	// Command to list accepted strategy and mode names
	app.AddCommand(&grumble.Command{
		Name: "strategies",
		Help: "list accepted routing strategy and access mode names",
		Run: func(c *grumble.Context) error {
			c.App.Println("static routing strategies:         " + routing.StrategyNames(false))
			c.App.Println("metadata-cache routing strategies: " + routing.StrategyNames(true))
			c.App.Println("access modes:                      " + routing.AccessModeNames())
			return nil
		},
	})
}

// main is the entry point for the application.
func main() {
	// Set up logging
	configureLogging()

	// Configure and create the CLI app
	app := setupCLI()

	// Add all command handlers
	AddCommands(app)

	// Run the application and handle any errors
	if err := app.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

// configureLogging sets up zerolog with appropriate formatting and level.
func configureLogging() {
	// Configure zerolog with a pretty console writer for interactive use
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	})

	// Set reasonable default log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// setupCLI initializes the command-line interface with basic configuration.
// Returns a configured grumble App instance.
func setupCLI() *grumble.App {
	// Determine history file location
	var histFile string
	home, err := os.UserHomeDir()
	if err != nil {
		histFile = ".sqlrouter" // current working directory
	} else {
		histFile = filepath.Join(home, ".sqlrouter") // home directory
	}

	// Create and configure the CLI app
	app := grumble.New(&grumble.Config{
		Name:        "sqlrouter",
		HistoryFile: histFile,
		Flags: func(f *grumble.Flags) {
			f.String("c", "config", "config.json", "path to configuration file")
		},
	})

	// Set up our ASCII art banner
	app.SetPrintASCIILogo(func(a *grumble.App) {
		fmt.Print(banner)
	})

	// Initialize configuration when the app starts
	app.OnInit(func(a *grumble.App, flags grumble.FlagMap) error {
		var err error
		config, err = LoadConfig(flags.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		return nil
	})

	return app
}
