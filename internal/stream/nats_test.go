package stream

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/alfredjeanlab/lotwatch/internal/events"
)

func startTestNATS(t *testing.T) (*natsserver.Server, string) {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv, srv.ClientURL()
}

func TestNATSDialerReceivesRelayedRecords(t *testing.T) {
	_, url := startTestNATS(t)

	conn, err := (&NATSDialer{URL: url}).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	recs := []string{`{"type":"gate_opened"}`, `{"type":"gate_closed"}`}
	for _, r := range recs {
		if err := pub.Publish(context.Background(), events.SubjectFor("gate"), []byte(r)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	pub.Flush()

	for _, want := range recs {
		got, err := conn.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("Next() = %s, want %s", got, want)
		}
	}
}

func TestNATSDialerServerShutdown(t *testing.T) {
	srv, url := startTestNATS(t)

	conn, err := (&NATSDialer{URL: url}).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	srv.Shutdown()

	errc := make(chan error, 1)
	go func() {
		_, err := conn.Next()
		errc <- err
	}()
	select {
	case err := <-errc:
		if err == nil {
			t.Error("Next() error = nil after shutdown, want error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Next() did not return after server shutdown")
	}
}
