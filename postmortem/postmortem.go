// Package postmortem wires the ring buffer and the ETM contract together
// into the single-threaded cooperative replay loop of §4.6/§5: a select
// multiplexes incoming bytes, the UI-held flag and a quiescence timer,
// and on trigger replays the buffer's live window through the ETM pump.
package postmortem

import (
	"time"

	"github.com/coresight-tools/mtrace/etm"
	"github.com/coresight-tools/mtrace/ring"
)

// HangTime is the default quiescence window (§5 Timeouts: "Postmortem
// quiescence: 200 ms").
const HangTime = 200 * time.Millisecond

// NopOracle always reports an unresolved address, so the core is
// testable without a real ELF loader (§4.7 EXPANSION).
type NopOracle struct{}

func (NopOracle) Lookup(addr uint32) (file, function string, line int, assembly string, jumpTarget uint32, ok bool) {
	return "", "", 0, "", 0, false
}

// Monitor is the cooperative replay loop. It owns the ring buffer, the
// ETM decoder contract and an Assembler, and decides when to replay.
type Monitor struct {
	buf     *ring.Buffer
	decoder etm.Decoder
	asm     *etm.Assembler

	bytes   chan byte
	held    chan bool
	done    chan struct{}
	hangDur time.Duration

	rendered bool
}

// NewMonitor wires a ring buffer, an ETM decoder and a symbol oracle into
// a replay loop starting program-counter reconstruction at startAddr.
func NewMonitor(buf *ring.Buffer, decoder etm.Decoder, oracle etm.SymbolOracle, startAddr uint32) *Monitor {
	return &Monitor{
		buf:     buf,
		decoder: decoder,
		asm:     etm.NewAssembler(oracle, startAddr),
		bytes:   make(chan byte, 256),
		held:    make(chan bool, 1),
		done:    make(chan struct{}),
		hangDur: HangTime,
	}
}

// Feed queues one incoming byte for the loop; it also writes it into the
// ring buffer so a later replay can see it.
func (m *Monitor) Feed(b byte) {
	m.buf.Write(b)
	select {
	case m.bytes <- b:
	case <-m.done:
	}
}

// SetHeld mirrors the UI hold/release control onto the loop.
func (m *Monitor) SetHeld(held bool) {
	select {
	case m.held <- held:
	case <-m.done:
	}
}

// Shutdown stops the loop.
func (m *Monitor) Shutdown() { close(m.done) }

// Lines returns the lines assembled by replay so far.
func (m *Monitor) Lines() []etm.Line { return m.asm.Lines() }

// Run drives the select loop described in §5 until Shutdown is called.
// It runs on its own goroutine, as the single thread of the cooperative
// postmortem subsystem.
func (m *Monitor) Run() {
	timer := time.NewTimer(m.hangDur)
	defer timer.Stop()

	held := false
	for {
		select {
		case <-m.done:
			return

		case h := <-m.held:
			held = h
			if held {
				m.replay()
			} else {
				m.rendered = false
				resetTimer(timer, m.hangDur)
			}

		case <-m.bytes:
			m.rendered = false
			resetTimer(timer, m.hangDur)

		case <-timer.C:
			if !held && !m.rendered && m.buf.Fill() > 0 {
				m.replay()
			}
			resetTimer(timer, m.hangDur)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// replay implements the replay procedure of §4.6.
func (m *Monitor) replay() {
	if m.buf.ConsumeWrapped() {
		m.decoder.ForceSync(false)
		m.asm.Event("resync: buffer wrapped since last replay")
	}

	first, second := m.buf.ReplayRange()
	m.pumpAll(first)
	m.pumpAll(second)

	m.rendered = true
}

func (m *Monitor) pumpAll(window []byte) {
	for _, b := range window {
		switch m.decoder.Pump(b) {
		case etm.EventStateChange:
			if sc, ok := m.decoder.LastChange(); ok {
				m.asm.Apply(sc)
			}
		case etm.EventError:
			m.asm.Event("ETM decode error")
		}
	}
}
