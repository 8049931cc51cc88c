package postmortem

import (
	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/tpiu"
)

// Demux is the byte-source side of the postmortem path: an optional
// TPIU demux stage ahead of the ring buffer, mirroring pump.Pump's
// shape but targeting a Monitor's ring buffer instead of the ITM
// decoder (§4.6 "for each incoming byte, after optional TPIU demux for
// the ETM stream id").
type Demux struct {
	tpiu     *tpiu.Decoder
	streamID uint8
	monitor  *Monitor
	logger   logrus.FieldLogger
}

// NewDemux builds a Demux feeding monitor. When tpiuEnabled is false,
// every incoming byte is fed to the monitor directly.
func NewDemux(tpiuEnabled bool, streamID uint8, monitor *Monitor, logger logrus.FieldLogger) *Demux {
	d := &Demux{streamID: streamID, monitor: monitor, logger: logger}
	if tpiuEnabled {
		d.tpiu = tpiu.NewDecoder()
	}
	return d
}

// Feed pumps a block read from the source.
func (d *Demux) Feed(block []byte) {
	for _, b := range block {
		d.feedByte(b)
	}
}

func (d *Demux) feedByte(b byte) {
	if d.tpiu == nil {
		d.monitor.Feed(b)
		return
	}

	if d.tpiu.Pump(b) != tpiu.EventRxedPacket {
		return
	}
	var pkt tpiu.Packet
	if !d.tpiu.GetPacket(&pkt) {
		return
	}
	for _, pair := range pkt.Pairs {
		if pair.StreamID == d.streamID {
			d.monitor.Feed(pair.Data)
		}
	}
}
