package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lotwatch/internal/client"
	"github.com/alfredjeanlab/lotwatch/internal/config"
	"github.com/alfredjeanlab/lotwatch/internal/ui"
)

var (
	apiURL     string
	jsonOutput bool

	cfg            *config.Config
	facilityClient client.FacilityClient
	logger         *slog.Logger
)

func defaultAPIURL() string {
	if s := os.Getenv("LOTWATCH_API_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8000"
}

var rootCmd = &cobra.Command{
	Use:           "lw <command>",
	Short:         "Operator console for a parking facility backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(apiURL)
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)
		if !ui.ShouldUseColor(os.Stdout) {
			ui.ForceNoColor()
		}
		facilityClient = client.NewHTTPClient(cfg.APIURL, cfg.HTTPTimeout)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if facilityClient != nil {
			facilityClient.Close()
		}
	},
}

// loadConfig reads the environment and applies the --api-url flag and the
// active remote's event settings on top.
func loadConfig(api string) (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, err
	}
	api = strings.TrimRight(api, "/")
	if api != "" && api != c.APIURL {
		c.APIURL = api
		if os.Getenv("LOTWATCH_EVENTS_URL") == "" {
			u, err := config.EventsURLFor(api, c.EventsTransport)
			if err != nil {
				return nil, err
			}
			c.EventsURL = u
		}
	}
	if os.Getenv("LOTWATCH_EVENTS_URL") == "" {
		if u := activeRemoteEventsURL(); u != "" {
			c.EventsURL = u
		}
	}
	if c.NATSURL == "" {
		c.NATSURL = activeRemoteNATSURL()
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL(), "parking backend URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "facility", Title: "Facility:"},
		&cobra.Group{ID: "admin", Title: "Admin:"},
		&cobra.Group{ID: "live", Title: "Live:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Facility
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(tokenCmd)

	// Admin
	rootCmd.AddCommand(adminCmd)

	// Live
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(eventsCmd)

	// System
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
