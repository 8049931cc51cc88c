package dispatch

import (
	"fmt"
	"io"

	"github.com/coresight-tools/mtrace/itm"
	"github.com/coresight-tools/mtrace/swfmt"
)

// Hardware-event class bits for the cat sink's enable mask.
const (
	HWClassException = 1 << iota
	HWClassDwtEvent
	HWClassPcSample
	HWClassRwWp
	HWClassAccessWp
	HWClassOffsetWp
	HWClassNiSync
	HWClassTimestamp
)

// NewCatTable builds the stateless formatted-sink handler table (§4.7):
// software values through their channel's template (or raw bytes, same
// three-way rule as the fan-out table), hardware events as CSV lines
// gated by hwMask.
func NewCatTable(w io.Writer, channelFormat map[int]string, hwMask uint8) Table {
	clk := &clock{}
	var t Table

	writeLine := func(line string) {
		fmt.Fprintln(w, line)
	}

	t[itm.KindSoftware] = func(msg itm.Message) {
		sw := *msg.Body.(*itm.Software)
		format, ok := channelFormat[int(sw.SrcAddr)]
		var record []byte
		if ok && format != "" {
			record = swfmt.Format(format, sw)
		} else {
			record = swfmt.FormatRaw(sw)
		}
		w.Write(record)
		io.WriteString(w, "\n")
	}

	t[itm.KindException] = func(msg itm.Message) {
		if hwMask&HWClassException != 0 {
			writeLine(formatException(clk.deltaSinceLastHW(), msg.Body.(*itm.Exception)))
		}
	}
	t[itm.KindDwtEvent] = func(msg itm.Message) {
		if hwMask&HWClassDwtEvent != 0 {
			writeLine(formatDwtEvent(clk.deltaSinceLastHW(), msg.Body.(*itm.DwtEvent)))
		}
	}
	t[itm.KindPcSample] = func(msg itm.Message) {
		if hwMask&HWClassPcSample != 0 {
			writeLine(formatPcSample(clk.deltaSinceLastHW(), msg.Body.(*itm.PcSample)))
		}
	}
	t[itm.KindDataRwWp] = func(msg itm.Message) {
		if hwMask&HWClassRwWp != 0 {
			writeLine(formatRwWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataRwWp)))
		}
	}
	t[itm.KindDataAccessWp] = func(msg itm.Message) {
		if hwMask&HWClassAccessWp != 0 {
			writeLine(formatAccessWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataAccessWp)))
		}
	}
	t[itm.KindDataOffsetWp] = func(msg itm.Message) {
		if hwMask&HWClassOffsetWp != 0 {
			writeLine(formatOffsetWp(clk.deltaSinceLastHW(), msg.Body.(*itm.DataOffsetWp)))
		}
	}
	t[itm.KindNiSync] = func(msg itm.Message) {
		if hwMask&HWClassNiSync != 0 {
			writeLine(formatNiSync(msg.Body.(*itm.NiSync)))
		}
	}
	t[itm.KindTimestamp] = func(msg itm.Message) {
		ts := msg.Body.(*itm.Timestamp)
		clk.bump(ts.TimeInc)
		if hwMask&HWClassTimestamp != 0 {
			writeLine(formatTimestamp(ts))
		}
	}

	return t
}
