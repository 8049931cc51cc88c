package dispatch

import (
	"fmt"

	"github.com/coresight-tools/mtrace/itm"
)

// exceptionNames covers the Cortex-M system exception vectors 1..15;
// exception_number >= 16 is an external interrupt, reported by number.
var exceptionNames = map[uint16]string{
	1: "Reset", 2: "NMI", 3: "HardFault", 4: "MemManage", 5: "BusFault",
	6: "UsageFault", 7: "Reserved", 8: "Reserved", 9: "Reserved", 10: "Reserved",
	11: "SVCall", 12: "DebugMonitor", 13: "Reserved", 14: "PendSV", 15: "SysTick",
}

func exceptionEventName(eventType uint8) string {
	switch eventType {
	case itm.ExceptionEnter:
		return "Enter"
	case itm.ExceptionExit:
		return "Exit"
	case itm.ExceptionResume:
		return "Resume"
	default:
		return "Unknown"
	}
}

func formatException(dtUs uint64, e *itm.Exception) string {
	kind := exceptionEventName(e.EventType)
	if e.ExceptionNumber >= 16 {
		return fmt.Sprintf("HWEVENT_EXCEPTION,%d,External,%d", dtUs, e.ExceptionNumber)
	}
	name, ok := exceptionNames[e.ExceptionNumber]
	if !ok {
		name = "Reserved"
	}
	return fmt.Sprintf("HWEVENT_EXCEPTION,%d,%s,%s", dtUs, kind, name)
}

// dwtEventBits lists (bit, name) in the order named by §3, iterated by
// position rather than indexed by the raw bitmask — the open question
// from Design Notes.
var dwtEventBits = []struct {
	bit  uint8
	name string
}{
	{itm.DwtEventCPI, "CPI"},
	{itm.DwtEventExc, "Exc"},
	{itm.DwtEventSleep, "Sleep"},
	{itm.DwtEventLSU, "LSU"},
	{itm.DwtEventFold, "Fold"},
	{itm.DwtEventCyc, "Cyc"},
}

func formatDwtEvent(dtUs uint64, e *itm.DwtEvent) string {
	line := fmt.Sprintf("HWEVENT_DWT,%d", dtUs)
	for _, b := range dwtEventBits {
		if e.Event&b.bit != 0 {
			line += "," + b.name
		}
	}
	return line
}

func formatPcSample(dtUs uint64, s *itm.PcSample) string {
	if s.Sleep {
		return fmt.Sprintf("HWEVENT_PCSample,%d,**SLEEP**", dtUs)
	}
	return fmt.Sprintf("HWEVENT_PCSample,%d,0x%08x", dtUs, s.Pc)
}

func formatRwWp(dtUs uint64, w *itm.DataRwWp) string {
	dir := "Read"
	if w.IsWrite {
		dir = "Write"
	}
	return fmt.Sprintf("HWEVENT_RWWT,%d,%d,%s,0x%x", dtUs, w.Comp, dir, w.Data)
}

func formatAccessWp(dtUs uint64, w *itm.DataAccessWp) string {
	return fmt.Sprintf("HWEVENT_AWP,%d,%d,0x%08x", dtUs, w.Comp, w.Data)
}

func formatOffsetWp(dtUs uint64, w *itm.DataOffsetWp) string {
	return fmt.Sprintf("HWEVENT_OFS,%d,%d,0x%04x", dtUs, w.Comp, w.Offset)
}

func formatNiSync(s *itm.NiSync) string {
	return fmt.Sprintf("HWEVENT_NISYNC,%02x,0x%08x", s.Type, s.Addr)
}

func timeDelayName(td itm.TimeDelay) string {
	switch td {
	case itm.TimeDelaySync:
		return "Sync"
	case itm.TimeDelayTransmission:
		return "TransmissionDelayed"
	case itm.TimeDelayData:
		return "DataDelayed"
	case itm.TimeDelayBoth:
		return "BothDelayed"
	default:
		return "Unknown"
	}
}

func formatTimestamp(ts *itm.Timestamp) string {
	return fmt.Sprintf("HWEVENT_TS,%s,%d", timeDelayName(ts.TimeStatus), ts.TimeInc)
}
