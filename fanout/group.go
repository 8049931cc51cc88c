package fanout

import "github.com/sirupsen/logrus"

const NumSoftwareChannels = 32

// Group owns the full set of fan-out channels: one per software channel
// (0..31) plus the single hardware-event channel.
type Group struct {
	Software [NumSoftwareChannels]*Channel
	Hardware *Channel
}

// NewGroup builds the channel set from a sparse configuration — channels
// not present in cfgs are left nil and simply drop anything routed to
// them.
func NewGroup(cfgs []ChannelConfig, logger logrus.FieldLogger) *Group {
	g := &Group{}
	for _, cfg := range cfgs {
		ch := NewChannel(cfg, logger)
		if cfg.Hardware {
			g.Hardware = ch
			continue
		}
		if cfg.Index >= 0 && cfg.Index < NumSoftwareChannels {
			g.Software[cfg.Index] = ch
		}
	}
	return g
}

// Shutdown stops every channel worker.
func (g *Group) Shutdown() {
	for _, ch := range g.Software {
		if ch != nil {
			ch.Shutdown()
		}
	}
	if g.Hardware != nil {
		g.Hardware.Shutdown()
	}
}
