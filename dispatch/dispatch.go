// Package dispatch routes a decoded ITM message to one of a fixed
// handler table (§4.3). There are exactly two concrete tables: the
// fan-out table (routes into per-channel workers) and the cat table
// (formats directly to an output stream) — both built here so the
// message-tag-to-handler shape (and the hardware-event line formatting
// it shares across both tables) lives in one place.
package dispatch

import "github.com/coresight-tools/mtrace/itm"

// Handler processes one decoded message. A nil entry in a Table means
// "silently discard" — the zero value for unknown/reserved/error kinds.
type Handler func(msg itm.Message)

// Table is a fixed array of handlers indexed by itm.Kind.
type Table [itm.NumKinds]Handler

// Dispatch routes msg to its handler, discarding it if none is
// registered for its Kind.
func (t Table) Dispatch(msg itm.Message) {
	if int(msg.Kind) < 0 || int(msg.Kind) >= len(t) {
		return
	}
	if h := t[msg.Kind]; h != nil {
		h(msg)
	}
}

// clock tracks the running accumulated timestamp and the timestamp of
// the last hardware event, mirroring the global decoder handle's
// bookkeeping (§3) so both table builders can compute <dt_us> the same
// way.
type clock struct {
	accumulated uint64
	lastHW      uint64
}

func (c *clock) bump(inc uint32) {
	c.accumulated += uint64(inc)
}

func (c *clock) deltaSinceLastHW() uint64 {
	d := c.accumulated - c.lastHW
	c.lastHW = c.accumulated
	return d
}
