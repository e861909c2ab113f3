// Package render draws the combined dashboard state as text.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/journal"
	"github.com/alfredjeanlab/lotwatch/internal/model"
	"github.com/alfredjeanlab/lotwatch/internal/ui"
)

const clearScreen = "\x1b[H\x1b[2J"

// Terminal is an engine sink that redraws the whole dashboard on every
// change.
type Terminal struct {
	w         io.Writer
	clock     clock.Clock
	claimBase string
	redraw    bool

	mu sync.Mutex
}

// NewTerminal creates a sink writing to w. claimBase is the backend origin
// used to build entry token claim URLs. When redraw is set the screen is
// cleared before each frame.
func NewTerminal(w io.Writer, c clock.Clock, claimBase string, redraw bool) *Terminal {
	if c == nil {
		c = clock.Real()
	}
	return &Terminal{w: w, clock: c, claimBase: claimBase, redraw: redraw}
}

// Render implements engine.Sink.
func (t *Terminal) Render(st model.CombinedState, recent []journal.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	if t.redraw {
		b.WriteString(clearScreen)
	}
	Frame(&b, st, recent, t.clock.Now(), t.claimBase)
	io.WriteString(t.w, b.String())
}

// Frame writes one dashboard frame to w.
func Frame(w io.Writer, st model.CombinedState, recent []journal.Entry, now time.Time, claimBase string) {
	fmt.Fprintf(w, "%s  %s\n", ui.RenderAccent("lotwatch"), Connection(st.Connection))

	if st.Snapshot == nil {
		fmt.Fprintln(w, ui.RenderMuted("Slots: waiting for first refresh"))
	} else {
		s := st.Snapshot
		fmt.Fprintf(w, "Slots: %d free of %d", s.FreeSlots, s.TotalSlots)
		if !st.LastPullAt.IsZero() {
			fmt.Fprintf(w, "  %s", ui.RenderMuted("updated "+st.LastPullAt.Local().Format("15:04:05")))
		}
		fmt.Fprintln(w)
		Slots(w, s.Slots)
	}

	fmt.Fprintf(w, "Gate: %s   Entry beam: %s   Exit beam: %s\n",
		Gate(st.Gate), Sensor(st.Sensors.Entry), Sensor(st.Sensors.Exit))

	for _, p := range []model.Purpose{model.PurposeEntry, model.PurposeExit} {
		fmt.Fprintf(w, "%-5s token: %s\n", p, Token(st.Tokens.Get(p), now, claimBase))
	}

	if len(recent) > 0 {
		fmt.Fprintln(w, ui.RenderMuted("Activity:"))
		for i := len(recent) - 1; i >= 0; i-- {
			fmt.Fprintf(w, "  %s\n", Entry(recent[i]))
		}
	}
}

// Slots writes a compact slot grid, eight per row.
func Slots(w io.Writer, slots []model.Slot) {
	for i, s := range slots {
		if i%8 == 0 {
			io.WriteString(w, "  ")
		}
		fmt.Fprintf(w, "[%s] ", SlotCell(s))
		if i%8 == 7 || i == len(slots)-1 {
			io.WriteString(w, "\n")
		}
	}
}

// SlotCell renders one slot as "<id> <status>".
func SlotCell(s model.Slot) string {
	label := fmt.Sprintf("%s %s", s.ID, s.Status)
	switch s.Status {
	case model.SlotFree:
		return ui.RenderOK(label)
	case model.SlotReserved:
		return ui.RenderWarn(label)
	default:
		return ui.RenderError(label)
	}
}

func Connection(c model.ConnectionState) string {
	if c == model.Connected {
		return ui.RenderOK("● connected")
	}
	return ui.RenderError("○ disconnected")
}

func Gate(g model.GateState) string {
	switch g {
	case model.GateOpen:
		return ui.RenderOK("OPEN")
	case model.GateClosed:
		return ui.RenderWarn("CLOSED")
	}
	return ui.RenderMuted("unknown")
}

func Sensor(s model.SensorState) string {
	switch s {
	case model.SensorClear:
		return ui.RenderOK("clear")
	case model.SensorBlocked:
		return ui.RenderError("BLOCKED")
	}
	return ui.RenderMuted("unknown")
}

// Token renders a token's payload and remaining lifetime.
func Token(tok *model.Token, now time.Time, claimBase string) string {
	if tok == nil {
		return ui.RenderMuted("none")
	}
	if tok.Expired(now) {
		return ui.RenderError("expired")
	}
	rem := tok.Remaining(now).Truncate(time.Second)
	left := fmt.Sprintf("(%s left)", rem)
	if rem < 10*time.Second {
		left = ui.RenderWarn(left)
	} else {
		left = ui.RenderMuted(left)
	}
	return tok.Payload(claimBase) + " " + left
}

func Entry(e journal.Entry) string {
	ts := ui.RenderMuted(e.Time.Local().Format("15:04:05"))
	if e.Level == journal.LevelError {
		return ts + " " + ui.RenderError(e.Message)
	}
	return ts + " " + e.Message
}
