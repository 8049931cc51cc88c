package etm

import "testing"

type fakeOracle struct {
	entries map[uint32]struct {
		file, function, assembly string
		line                     int
		jumpTarget               uint32
	}
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{entries: map[uint32]struct {
		file, function, assembly string
		line                     int
		jumpTarget               uint32
	}{}}
}

func (f *fakeOracle) add(addr uint32, file, function string, line int, assembly string, jumpTarget uint32) {
	f.entries[addr] = struct {
		file, function, assembly string
		line                     int
		jumpTarget               uint32
	}{file, function, assembly, line, jumpTarget}
}

func (f *fakeOracle) Lookup(addr uint32) (string, string, int, string, uint32, bool) {
	e, ok := f.entries[addr]
	if !ok {
		return "", "", 0, "", 0, false
	}
	return e.file, e.function, e.line, e.assembly, e.jumpTarget, true
}

func TestApplyAdvancesByWidth(t *testing.T) {
	o := newFakeOracle()
	o.add(0x1000, "main.c", "main", 10, "nop", 0)
	o.add(0x1002, "main.c", "main", 11, "nop", 0)

	a := NewAssembler(o, 0x1000)
	a.Apply(StateChange{Width: 2})
	if a.WorkingAddr() != 0x1002 {
		t.Fatalf("working addr = 0x%x, want 0x1002", a.WorkingAddr())
	}
	a.Apply(StateChange{Width: 2})
	if a.WorkingAddr() != 0x1004 {
		t.Fatalf("working addr = 0x%x, want 0x1004", a.WorkingAddr())
	}
}

func TestApplyFollowsTakenBranch(t *testing.T) {
	o := newFakeOracle()
	o.add(0x1000, "main.c", "main", 10, "bl sub", 0x2000)
	o.add(0x2000, "main.c", "sub", 1, "push {lr}", 0)

	a := NewAssembler(o, 0x1000)
	a.Apply(StateChange{IsBranch: true, Taken: true, JumpTarget: 0x2000, Width: 4})
	if a.WorkingAddr() != 0x2000 {
		t.Fatalf("working addr = 0x%x, want 0x2000 after taken branch", a.WorkingAddr())
	}

	lines := a.Lines()
	if lines[len(lines)-1].Type != LTAssembly {
		t.Fatalf("last line type = %v, want LTAssembly for a taken branch", lines[len(lines)-1].Type)
	}
}

func TestApplyNonTakenBranchMarksNAssembly(t *testing.T) {
	o := newFakeOracle()
	o.add(0x1000, "main.c", "main", 10, "bne skip", 0x1010)
	o.add(0x1004, "main.c", "main", 11, "nop", 0)

	a := NewAssembler(o, 0x1000)
	a.Apply(StateChange{IsBranch: true, Taken: false, JumpTarget: 0x1010, Width: 4})
	if a.WorkingAddr() != 0x1004 {
		t.Fatalf("working addr = 0x%x, want 0x1004 (fell through)", a.WorkingAddr())
	}
	lines := a.Lines()
	if lines[len(lines)-1].Type != LTNAssembly {
		t.Fatalf("last line type = %v, want LTNAssembly for a non-taken branch", lines[len(lines)-1].Type)
	}
}

func TestApplyUnknownAddressEmitsNAssembly(t *testing.T) {
	o := newFakeOracle()
	a := NewAssembler(o, 0xdeadbeef)
	a.Apply(StateChange{Width: 2})

	lines := a.Lines()
	if len(lines) != 1 || lines[0].Type != LTNAssembly {
		t.Fatalf("lines = %+v, want a single LTNAssembly entry for an unresolved address", lines)
	}
}

func TestApplyCommandedAddressMismatchLogsDebug(t *testing.T) {
	o := newFakeOracle()
	o.add(0x1000, "main.c", "main", 10, "nop", 0)

	a := NewAssembler(o, 0x1000)
	commanded := uint32(0x3000)
	a.Apply(StateChange{Width: 2, Commanded: &commanded})

	if a.WorkingAddr() != 0x3000 {
		t.Fatalf("working addr = 0x%x, want commanded 0x3000 to win", a.WorkingAddr())
	}
	lines := a.Lines()
	if lines[len(lines)-1].Type != LTDebug {
		t.Fatalf("last line type = %v, want LTDebug for the mismatch marker", lines[len(lines)-1].Type)
	}
}

func TestApplyCommandedAddressMatchingPredictionLogsNothing(t *testing.T) {
	o := newFakeOracle()
	o.add(0x1000, "main.c", "main", 10, "nop", 0)

	a := NewAssembler(o, 0x1000)
	commanded := uint32(0x1002)
	a.Apply(StateChange{Width: 2, Commanded: &commanded})

	for _, l := range a.Lines() {
		if l.Type == LTDebug {
			t.Fatalf("unexpected debug line when commanded address matches prediction: %+v", l)
		}
	}
}

func TestEventAppendsAnnotation(t *testing.T) {
	a := NewAssembler(newFakeOracle(), 0)
	a.Event("resync")
	lines := a.Lines()
	if len(lines) != 1 || lines[0].Type != LTEvent || lines[0].Text != "resync" {
		t.Fatalf("lines = %+v, want a single LTEvent(\"resync\")", lines)
	}
}

func TestLineTypeString(t *testing.T) {
	cases := map[LineType]string{
		LTFile:      "File",
		LTSource:    "Source",
		LTAssembly:  "Assembly",
		LTNAssembly: "NAssembly",
		LTEvent:     "Event",
		LTDebug:     "Debug",
	}
	for lt, want := range cases {
		if got := lt.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", lt, got, want)
		}
	}
}
