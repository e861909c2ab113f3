package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lotwatch/internal/config"
	"github.com/alfredjeanlab/lotwatch/internal/events"
	"github.com/alfredjeanlab/lotwatch/internal/idgen"
	"github.com/alfredjeanlab/lotwatch/internal/model"
	"github.com/alfredjeanlab/lotwatch/internal/stream"
	"github.com/alfredjeanlab/lotwatch/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Print the live event stream",
	GroupID: "live",
	Long: `Print every record from the backend push channel as it arrives.

With --relay-nats each record is also published to NATS on
parking.<type>, so further dashboards can use the nats transport instead of
holding their own backend connection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		relay, _ := cmd.Flags().GetBool("relay-nats")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		instance, err := idgen.Generate()
		if err != nil {
			return err
		}
		dialer, err := newDialer(cfg, instance)
		if err != nil {
			return err
		}

		p := &eventPrinter{ctx: ctx, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), json: jsonOutput}
		if relay {
			if cfg.EventsTransport == config.TransportNATS {
				return fmt.Errorf("--relay-nats cannot be used with the nats transport")
			}
			if cfg.NATSURL == "" {
				return fmt.Errorf("--relay-nats needs LOTWATCH_NATS_URL or a remote with --nats")
			}
			pub, err := events.NewNATSPublisher(cfg.NATSURL, nats.Name(instance))
			if err != nil {
				return err
			}
			defer pub.Close()
			p.relay = pub
		}

		sc := stream.New(dialer, p,
			stream.WithReconnectDelay(cfg.ReconnectDelay),
			stream.WithLogger(logger),
		)
		if err := sc.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		sc.Wait()
		return nil
	},
}

func init() {
	eventsCmd.Flags().Bool("relay-nats", false, "republish every record to NATS")
}

// eventPrinter prints and optionally relays stream events.
type eventPrinter struct {
	ctx    context.Context
	out    io.Writer
	errOut io.Writer
	json   bool
	relay  events.Publisher
}

func (p *eventPrinter) HandleEvent(ev events.Event) {
	record, err := events.Encode(ev)
	if err != nil {
		logger.Warn("encoding event", "kind", ev.Kind(), "err", err)
		return
	}

	if p.json {
		fmt.Fprintln(p.out, string(record))
	} else {
		fmt.Fprintf(p.out, "%s %-14s %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), ev.Kind(), record)
	}

	if p.relay != nil {
		if err := p.relay.Publish(p.ctx, events.SubjectFor(wireTypeOf(ev)), record); err != nil {
			logger.Warn("relaying event", "kind", ev.Kind(), "err", err)
		}
	}
}

func (p *eventPrinter) HandleConnection(state model.ConnectionState) {
	if state == model.Connected {
		fmt.Fprintln(p.errOut, ui.RenderOK("connected"))
		return
	}
	fmt.Fprintln(p.errOut, ui.RenderError("disconnected, retrying"))
}

func wireTypeOf(ev events.Event) string {
	if u, ok := ev.(events.Unrecognized); ok {
		return u.Type
	}
	return events.WireType(ev.Kind())
}
