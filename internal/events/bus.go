package events

import "context"

// Publisher emits raw event records onto the bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, record []byte) error
	Close() error
}

// Subscriber receives raw event records from the bus.
type Subscriber interface {
	// Subscribe delivers raw records on the returned channel.
	// Call the returned cancel function to unsubscribe.
	Subscribe(subject string) (<-chan []byte, func(), error)
	Close() error
}

// SubjectFor returns the NATS subject a record of the given wire type is
// relayed on, e.g. "parking.slot_reserved".
func SubjectFor(wireType string) string {
	if wireType == "" {
		wireType = "unknown"
	}
	return SubjectPrefix + wireType
}
