package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lotwatch/internal/archive"
	"github.com/alfredjeanlab/lotwatch/internal/config"
	"github.com/alfredjeanlab/lotwatch/internal/engine"
	"github.com/alfredjeanlab/lotwatch/internal/idgen"
	"github.com/alfredjeanlab/lotwatch/internal/journal"
	"github.com/alfredjeanlab/lotwatch/internal/metrics"
	"github.com/alfredjeanlab/lotwatch/internal/model"
	"github.com/alfredjeanlab/lotwatch/internal/render"
	"github.com/alfredjeanlab/lotwatch/internal/stream"
	"github.com/alfredjeanlab/lotwatch/internal/token"
	"github.com/alfredjeanlab/lotwatch/internal/ui"
)

const websocketPingInterval = 30 * time.Second

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "Run the live operator dashboard",
	GroupID: "live",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		claimBase, _ := cmd.Flags().GetString("claim-base")
		if claimBase == "" {
			claimBase = cfg.APIURL
		}

		instance, err := idgen.Generate()
		if err != nil {
			return err
		}
		dialer, err := newDialer(cfg, instance)
		if err != nil {
			return err
		}

		m := metrics.New(prometheus.NewRegistry())
		var sink engine.Sink
		if jsonOutput {
			sink = jsonSink(cmd.OutOrStdout())
		} else {
			sink = render.NewTerminal(cmd.OutOrStdout(), nil, claimBase, ui.IsTerminal(os.Stdout))
		}

		eng := engine.New(facilityClient, dialer, engine.Options{
			PollInterval:   cfg.PollInterval,
			ReconnectDelay: cfg.ReconnectDelay,
			TokenInterval:  token.Interval(cfg.TokenTTL, cfg.TokenMargin),
			Logger:         logger,
			Metrics:        m,
			Journal:        journal.New(journal.DefaultCapacity, nil),
			Sink:           sink,
		})

		if cfg.MetricsAddr != "" {
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: newStatusMux(eng, m)}
			go func() {
				logger.Info("status server listening", "addr", cfg.MetricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("status server failed", "err", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		if cfg.ArchiveEnabled() {
			sched, err := newArchiveScheduler(ctx, cfg, eng)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		logger.Info("dashboard starting",
			"api_url", cfg.APIURL,
			"events_url", eventsEndpoint(cfg),
			"transport", cfg.EventsTransport,
			"instance", instance,
		)
		return eng.Run(ctx)
	},
}

func init() {
	dashboardCmd.Flags().String("claim-base", "", "origin for entry claim URLs (default: the backend URL)")
}

// newDialer builds the push channel transport selected by the config.
func newDialer(c *config.Config, instance string) (stream.Dialer, error) {
	switch c.EventsTransport {
	case config.TransportWebSocket:
		return &stream.WebSocketDialer{
			URL:          c.EventsURL,
			Header:       http.Header{"User-Agent": []string{"lotwatch/" + instance}},
			PingInterval: websocketPingInterval,
		}, nil
	case config.TransportNDJSON:
		return &stream.HTTPStreamDialer{
			URL:    c.EventsURL,
			Header: http.Header{"User-Agent": []string{"lotwatch/" + instance}},
		}, nil
	case config.TransportNATS:
		if c.NATSURL == "" {
			return nil, fmt.Errorf("the nats transport needs LOTWATCH_NATS_URL or a remote with --nats")
		}
		return &stream.NATSDialer{URL: c.NATSURL, Options: []nats.Option{nats.Name(instance)}}, nil
	}
	return nil, fmt.Errorf("unknown events transport %q", c.EventsTransport)
}

func eventsEndpoint(c *config.Config) string {
	if c.EventsTransport == config.TransportNATS {
		return c.NATSURL
	}
	return c.EventsURL
}

func newArchiveScheduler(ctx context.Context, c *config.Config, src archive.Source) (*archive.Scheduler, error) {
	var dests []archive.Destination
	if c.ArchiveS3Bucket != "" {
		d, err := archive.NewS3Destination(ctx, c.ArchiveS3Bucket, c.ArchiveS3Key, c.ArchiveS3Region, c.ArchiveS3Endpoint)
		if err != nil {
			return nil, err
		}
		dests = append(dests, d)
	}
	if c.ArchiveGitRepo != "" {
		dests = append(dests, archive.NewGitDestination(c.ArchiveGitRepo, c.ArchiveGitFile, c.ArchiveGitBranch))
	}
	return archive.NewScheduler(src, dests, c.ArchiveInterval, nil, logger), nil
}

// stateSource is what the status endpoints read.
type stateSource interface {
	CurrentState() model.CombinedState
	Journal() *journal.Journal
	RequestPull()
}

// newStatusMux serves /metrics, the combined state and the activity log.
// POST /refresh asks the running dashboard for a snapshot pull, e.g. after
// an admin reset from another terminal.
func newStatusMux(src stateSource, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, src.CurrentState())
	})
	mux.HandleFunc("GET /activity", func(w http.ResponseWriter, r *http.Request) {
		entries := src.Journal().Entries()
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, entries)
	})
	mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
		src.RequestPull()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if src.CurrentState().Connection != model.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, "disconnected\n")
			return
		}
		io.WriteString(w, "ok\n")
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing status response", "err", err)
	}
}

// jsonSink writes one JSON document per state change.
func jsonSink(w io.Writer) engine.Sink {
	enc := json.NewEncoder(w)
	return engine.SinkFunc(func(st model.CombinedState, _ []journal.Entry) {
		enc.Encode(st)
	})
}
