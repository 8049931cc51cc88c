package dispatch

import (
	"github.com/coresight-tools/mtrace/fanout"
	"github.com/coresight-tools/mtrace/itm"
)

// NewFanoutTable builds the handler table that routes decoded messages
// into a fanout.Group: Software values to their configured software
// channel, every hardware-event variant formatted to a CSV line on the
// shared hardware channel.
func NewFanoutTable(group *fanout.Group) Table {
	clk := &clock{}
	var t Table

	t[itm.KindSoftware] = func(msg itm.Message) {
		sw := msg.Body.(*itm.Software)
		if int(sw.SrcAddr) >= fanout.NumSoftwareChannels {
			return
		}
		if ch := group.Software[sw.SrcAddr]; ch != nil {
			ch.SendSoftware(*sw)
		}
	}

	sendHW := func(line string) {
		if group.Hardware != nil {
			group.Hardware.SendLine(line)
		}
	}

	t[itm.KindException] = func(msg itm.Message) {
		sendHW(formatException(clk.deltaSinceLastHW(), msg.Body.(*itm.Exception)))
	}
	t[itm.KindDwtEvent] = func(msg itm.Message) {
		sendHW(formatDwtEvent(clk.deltaSinceLastHW(), msg.Body.(*itm.DwtEvent)))
	}
	t[itm.KindPcSample] = func(msg itm.Message) {
		sendHW(formatPcSample(clk.deltaSinceLastHW(), msg.Body.(*itm.PcSample)))
	}
	t[itm.KindDataRwWp] = func(msg itm.Message) {
		sendHW(formatRwWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataRwWp)))
	}
	t[itm.KindDataAccessWp] = func(msg itm.Message) {
		sendHW(formatAccessWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataAccessWp)))
	}
	t[itm.KindDataOffsetWp] = func(msg itm.Message) {
		sendHW(formatOffsetWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataOffsetWp)))
	}
	t[itm.KindNiSync] = func(msg itm.Message) {
		sendHW(formatNiSync(msg.Body.(*itm.NiSync)))
	}
	t[itm.KindTimestamp] = func(msg itm.Message) {
		ts := msg.Body.(*itm.Timestamp)
		clk.bump(ts.TimeInc)
		sendHW(formatTimestamp(ts))
	}

	return t
}
