// Package pump wires the TPIU and ITM decoders into the single
// top-level byte pump of §4.5: every incoming byte passes through an
// optional TPIU demux stage before reaching the ITM decoder, and every
// decoded ITM message is handed to a dispatch.Table.
package pump

import (
	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/dispatch"
	"github.com/coresight-tools/mtrace/itm"
	"github.com/coresight-tools/mtrace/tpiu"
)

// streamIDNone and streamIDReserved are never forwarded to the ITM decoder and never
// logged (§4.5: "Ignore stream_id ∈ {0, 0x7F}").
const (
	streamIDNone     = 0
	streamIDReserved = 0x7F
)

// Pump is the top-level byte pump. TPIU may be nil, in which case bytes
// are fed directly to the ITM decoder (§4.5 "Else: feed the byte
// directly to the ITM pump").
type Pump struct {
	tpiu *tpiu.Decoder
	itm  *itm.Decoder

	itmStreamID uint8
	table       dispatch.Table

	logger logrus.FieldLogger
}

// New builds a pump. When tpiuEnabled is true, a TPIU demux stage is
// inserted ahead of the ITM decoder, filtering for itmStreamID.
func New(tpiuEnabled bool, itmStreamID uint8, table dispatch.Table, logger logrus.FieldLogger) *Pump {
	p := &Pump{
		itm:         itm.NewDecoder(),
		itmStreamID: itmStreamID,
		table:       table,
		logger:      logger,
	}
	if tpiuEnabled {
		p.tpiu = tpiu.NewDecoder()
	}
	return p
}

// Feed pumps a block of bytes read from the source.
func (p *Pump) Feed(block []byte) {
	for _, b := range block {
		p.PumpByte(b)
	}
}

// PumpByte pumps a single byte through the demux and ITM stages,
// dispatching every decoded ITM message.
func (p *Pump) PumpByte(b byte) {
	if p.tpiu == nil {
		p.feedITM(b)
		return
	}

	switch p.tpiu.Pump(b) {
	case tpiu.EventNewSync, tpiu.EventSynced:
		p.itm.ForceSync(true)
	case tpiu.EventUnsynced:
		p.itm.ForceSync(false)
	case tpiu.EventRxedPacket:
		var pkt tpiu.Packet
		if p.tpiu.GetPacket(&pkt) {
			p.demuxPacket(pkt)
		}
	}
}

func (p *Pump) demuxPacket(pkt tpiu.Packet) {
	for _, pair := range pkt.Pairs {
		switch pair.StreamID {
		case streamIDNone, streamIDReserved:
			continue
		case p.itmStreamID:
			p.feedITM(pair.Data)
		default:
			if p.logger != nil {
				p.logger.WithField("stream_id", pair.StreamID).Info("ignoring non-ITM TPIU stream")
			}
		}
	}
}

func (p *Pump) feedITM(b byte) {
	switch p.itm.Pump(b) {
	case itm.EventOverflow:
		if p.logger != nil {
			p.logger.Warn("ITM overflow packet")
		}
	case itm.EventError:
		if p.logger != nil {
			p.logger.Warn("ITM framing error")
		}
	case itm.EventPacketReceived:
		if msg, ok := p.itm.Decoded(); ok {
			p.table.Dispatch(msg)
		}
	}
}

// TPIUCounters returns the TPIU decoder's counters, or a zero value if
// TPIU demuxing is disabled.
func (p *Pump) TPIUCounters() tpiu.Counters {
	if p.tpiu == nil {
		return tpiu.Counters{}
	}
	return p.tpiu.Counters
}

// ITMCounters returns the ITM decoder's counters.
func (p *Pump) ITMCounters() itm.Counters {
	return p.itm.Counters
}

// ForceITMSync sets the ITM decoder's sync state directly, bypassing
// the sync-packet/TPIU-NewSync path. Used when a run is configured to
// assume sync immediately (config.Config.ForceITMSync) rather than
// waiting for the target to emit one.
func (p *Pump) ForceITMSync(sync bool) {
	p.itm.ForceSync(sync)
}
