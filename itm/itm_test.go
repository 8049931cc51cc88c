package itm

import "testing"

func syncedDecoder() *Decoder {
	d := NewDecoder()
	d.ForceSync(true)
	return d
}

func TestSyncPacketDetection(t *testing.T) {
	d := NewDecoder()
	var last Event
	for i := 0; i < minSyncZeroBytes; i++ {
		last = d.Pump(0x00)
		if last != EventNone {
			t.Fatalf("byte %d: expected None during zero run, got %v", i, last)
		}
	}
	last = d.Pump(0x80)
	if last != EventSynced {
		t.Fatalf("expected Synced after zero run + 0x80, got %v", last)
	}
	if !d.Synced() {
		t.Fatalf("decoder should report synced")
	}
}

func TestForceSyncFalseCountsLostSync(t *testing.T) {
	d := syncedDecoder()
	d.ForceSync(false)
	if d.Synced() {
		t.Fatalf("expected unsynced after ForceSync(false)")
	}
	if d.Counters.LostSyncCount != 1 {
		t.Fatalf("lost_sync_count = %d, want 1", d.Counters.LostSyncCount)
	}
}

func TestSoftwarePacketOneByte(t *testing.T) {
	d := syncedDecoder()
	// header: ID=3, SH=0, size=01 (1 byte) -> 0b00011 0 01 = 0x19
	header := byte(3<<3 | 0<<2 | 0x01)
	if ev := d.Pump(header); ev != EventNone {
		t.Fatalf("expected None awaiting payload, got %v", ev)
	}
	ev := d.Pump(0x42)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, ok := d.Decoded()
	if !ok {
		t.Fatalf("Decoded() returned ok=false")
	}
	sw, ok := msg.Body.(*Software)
	if !ok {
		t.Fatalf("body is not *Software: %T", msg.Body)
	}
	if sw.SrcAddr != 3 || sw.Len != 1 || sw.Value != 0x42 {
		t.Fatalf("unexpected software message: %+v", sw)
	}
}

// Scenario 4: channel 3 %c broadcast carries a 3-byte software value
// 0x00434241, decoded here as a plain 4-byte Software message (formatting
// into bytes A,B,C is the fanout package's job, not the decoder's).
func TestSoftwareFourByteValue(t *testing.T) {
	d := syncedDecoder()
	header := byte(3<<3 | 0<<2 | 0x03) // size=11 (4 bytes)
	d.Pump(header)
	d.Pump(0x41)
	d.Pump(0x42)
	d.Pump(0x43)
	ev := d.Pump(0x00)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	sw := msg.Body.(*Software)
	if sw.SrcAddr != 3 || sw.Len != 4 || sw.Value != 0x00434241 {
		t.Fatalf("unexpected software message: %+v", sw)
	}
}

// Scenario 5: exception_number=11, eventType=Enter.
func TestExceptionRecord(t *testing.T) {
	d := syncedDecoder()
	header := byte(1<<3 | 1<<2 | 0x02) // ID=1 (exception), SH=1, size=10 (2 bytes)
	d.Pump(header)

	payload16 := uint16(11) | uint16(ExceptionEnter)<<9
	d.Pump(byte(payload16))
	ev := d.Pump(byte(payload16 >> 8))
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	exc := msg.Body.(*Exception)
	if exc.ExceptionNumber != 11 || exc.EventType != ExceptionEnter {
		t.Fatalf("unexpected exception: %+v", exc)
	}
}

func TestDwtEventBitmask(t *testing.T) {
	d := syncedDecoder()
	header := byte(0<<3 | 1<<2 | 0x01) // ID=0 (event counter), SH=1, size=01
	d.Pump(header)
	ev := d.Pump(DwtEventCPI | DwtEventSleep)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	de := msg.Body.(*DwtEvent)
	if de.Event != DwtEventCPI|DwtEventSleep {
		t.Fatalf("unexpected dwt event mask: %#x", de.Event)
	}
}

func TestPcSampleSleep(t *testing.T) {
	d := syncedDecoder()
	header := byte(3<<3 | 1<<2 | 0x01) // ID=3 (sleep), SH=1, size=01 (ignored payload byte)
	d.Pump(header)
	ev := d.Pump(0x00)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	pc := msg.Body.(*PcSample)
	if !pc.Sleep {
		t.Fatalf("expected Sleep=true")
	}
}

func TestOverflowPacket(t *testing.T) {
	d := syncedDecoder()
	ev := d.Pump(0x70)
	if ev != EventOverflow {
		t.Fatalf("expected Overflow, got %v", ev)
	}
	if d.Counters.OverflowCount != 1 {
		t.Fatalf("overflow_count = %d, want 1", d.Counters.OverflowCount)
	}
}

func TestLocalTimestampFormat2(t *testing.T) {
	d := syncedDecoder()
	header := byte(0x05 << 4) // bits[6:4]=5, bit7=0, sizeCode=0
	ev := d.Pump(header)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	ts := msg.Body.(*Timestamp)
	if ts.TimeInc != 5 || ts.TimeStatus != TimeDelaySync {
		t.Fatalf("unexpected timestamp: %+v", ts)
	}
}

func TestLocalTimestampFormat1Continuation(t *testing.T) {
	d := syncedDecoder()
	header := byte(0x80 | (0x02 << 4)) // bit7=1 (format 1), TC=2
	d.Pump(header)
	d.Pump(0x81) // continuation: 7 low bits = 1, more follows
	ev := d.Pump(0x02) // final byte: 7 bits = 2 -> value = 1 | (2<<7) = 257
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	ts := msg.Body.(*Timestamp)
	if ts.TimeStatus != TimeDelayData || ts.TimeInc != 257 {
		t.Fatalf("unexpected timestamp: %+v", ts)
	}
}

func TestDataWatchpointVariants(t *testing.T) {
	d := syncedDecoder()
	// comparator 2, write, 4-byte data.
	header := byte((12+2)<<3 | 1<<2 | 0x03)
	d.Pump(header)
	d.Pump(0x01)
	d.Pump(0x00)
	d.Pump(0x00)
	ev := d.Pump(0x00)
	if ev != EventPacketReceived {
		t.Fatalf("expected PacketReceived, got %v", ev)
	}
	msg, _ := d.Decoded()
	wp := msg.Body.(*DataRwWp)
	if wp.Comp != 2 || !wp.IsWrite || wp.Data != 1 {
		t.Fatalf("unexpected watchpoint: %+v", wp)
	}
}

func TestUnknownDiscriminatorIsError(t *testing.T) {
	d := syncedDecoder()
	header := byte(30<<3 | 1<<2 | 0x01) // ID=30 is unassigned
	ev := d.Pump(header)
	if ev != EventError {
		t.Fatalf("expected Error for unknown discriminator, got %v", ev)
	}
	if d.Counters.ErrorCount != 1 {
		t.Fatalf("error_count = %d, want 1", d.Counters.ErrorCount)
	}
}

func TestBytesDiscardedWhileUnsynced(t *testing.T) {
	d := NewDecoder()
	ev := d.Pump(0x42)
	if ev != EventNone {
		t.Fatalf("expected None while unsynced, got %v", ev)
	}
}
