// Package cat wires config.Config, dispatch.NewCatTable and pump.Pump
// into the formatted (cat) sink of §4.7: one text/binary stream,
// software channels through their template, hardware events as CSV
// lines gated by a bitmask.
package cat

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/config"
	"github.com/coresight-tools/mtrace/dispatch"
	"github.com/coresight-tools/mtrace/pump"
)

// Sink owns the pump and its dispatch table for the lifetime of a run.
type Sink struct {
	pump *pump.Pump
}

// New builds a cat sink writing to w, configured per cfg.
func New(cfg config.Config, w io.Writer, logger logrus.FieldLogger) *Sink {
	table := dispatch.NewCatTable(w, cfg.ChannelFormat, cfg.HardwareEventMask)
	p := pump.New(cfg.UseTPIU, cfg.ITMStreamID, table, logger)
	if cfg.ForceITMSync {
		p.ForceITMSync(true)
	}
	return &Sink{pump: p}
}

// Feed pumps a block of bytes read from the configured source.
func (s *Sink) Feed(block []byte) { s.pump.Feed(block) }

// Pump exposes the underlying pump for counters/stats wiring.
func (s *Sink) Pump() *pump.Pump { return s.pump }
