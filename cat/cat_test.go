package cat

import (
	"bytes"
	"strings"
	"testing"

	"github.com/coresight-tools/mtrace/config"
)

func TestSinkFormatsSoftwareChannel(t *testing.T) {
	cfg := config.Default()
	cfg.ChannelFormat[0] = "%c"

	var buf bytes.Buffer
	s := New(cfg, &buf, nil)
	s.Pump().ITMCounters() // exercise the accessor

	// 4-byte software packet on channel 0, bytes "ABC\x00" little-endian.
	syncAndSoftware := buildSoftwarePacket()
	s.Feed(syncAndSoftware)

	got := strings.TrimRight(buf.String(), "\x00\n")
	if got != "ABC" {
		t.Fatalf("output = %q, want %q", got, "ABC")
	}
}

func buildSoftwarePacket() []byte {
	// header 0x03: sizeCode=3 (4-byte payload), sh=0, id=0 => software, srcAddr 0
	return []byte{0x03, 'A', 'B', 'C', 0x00}
}
