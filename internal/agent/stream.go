package agent

import "strings"

// finalGate filters a streamed model response so the caller only ever sees
// text strictly after the Final: marker. Before the marker appears nothing
// is forwarded, which keeps partial Action: blocks out of the user-visible
// stream. The marker may arrive split across chunks; the gate buffers until
// it can decide.
type finalGate struct {
	forward func(string) error

	buf  strings.Builder
	open bool // marker seen, subsequent text passes through
	pos  int  // next unforwarded byte once open
}

func newFinalGate(forward func(string) error) *finalGate {
	return &finalGate{forward: forward}
}

// Feed appends one chunk and forwards whatever the gate now allows.
func (g *finalGate) Feed(chunk string) error {
	if g.forward == nil {
		return nil
	}
	g.buf.WriteString(chunk)

	if !g.open {
		idx := strings.Index(g.buf.String(), finalMarker)
		if idx < 0 {
			return nil
		}
		g.open = true
		g.pos = idx + len(finalMarker)
	}

	pending := g.buf.String()[g.pos:]
	if pending == "" {
		return nil
	}
	g.pos += len(pending)
	return g.forward(pending)
}

// Opened reports whether the marker has been seen.
func (g *finalGate) Opened() bool { return g.open }
