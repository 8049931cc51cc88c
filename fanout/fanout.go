// Package fanout implements the channel fan-out subsystem (§4.4): one
// worker per configured software channel, plus one for the hardware-event
// channel, each draining a lossy internal queue into a FIFO or a
// truncate-on-open permafile.
//
// The internal producer-to-worker handoff is grounded on the same
// try-send/drain-oldest/try-send-again policy used for lossy pub/sub
// delivery elsewhere in the wider trace tooling ecosystem: a bounded Go
// channel with a non-blocking producer, rather than an OS pipe plus
// EWOULDBLOCK.
package fanout

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/itm"
	"github.com/coresight-tools/mtrace/swfmt"
)

// Sink selects a channel worker's output endpoint.
type Sink int

const (
	SinkFIFO Sink = iota
	SinkPermafile
)

const (
	queueDepth   = 8
	fifoMode     = 0640
	reopenPoll   = 50 * time.Millisecond
	writeRetry   = 10 * time.Millisecond
)

var errShutdown = errors.New("fanout: channel shut down")

// ChannelConfig describes one fan-out channel.
type ChannelConfig struct {
	Name       string
	Index      int // software channel number 0..31; ignored when Hardware is set
	Format     string // printf-style template; empty means raw mode
	Hardware   bool   // true for the single well-known hardware-event channel
	OutputPath string
	Sink       Sink
}

// Channel is one software or hardware fan-out channel: a lossy internal
// queue drained by a dedicated worker goroutine into the configured sink.
type Channel struct {
	cfg ChannelConfig

	// instanceID distinguishes this worker instance in logs across
	// process restarts with the same channel name/path.
	instanceID string

	in   chan []byte
	done chan struct{}

	drops uint64

	logger logrus.FieldLogger
}

// NewChannel constructs a channel and starts its worker goroutine.
func NewChannel(cfg ChannelConfig, logger logrus.FieldLogger) *Channel {
	id := xid.New().String()
	c := &Channel{
		cfg:        cfg,
		instanceID: id,
		in:         make(chan []byte, queueDepth),
		done:       make(chan struct{}),
		logger:     logger.WithFields(logrus.Fields{"channel": cfg.Name, "instance": id}),
	}
	go c.run()
	return c
}

// SendSoftware formats (or, in raw mode, passes through) a decoded
// software value and enqueues it for the worker, dropping the oldest
// queued record under backpressure.
func (c *Channel) SendSoftware(sw itm.Software) {
	var record []byte
	if c.cfg.Format == "" {
		record = swfmt.FormatRaw(sw)
	} else {
		record = swfmt.Format(c.cfg.Format, sw)
	}
	c.send(record)
}

// SendLine enqueues a preformatted hardware-event text line, terminated
// by the platform end-of-line sequence.
func (c *Channel) SendLine(line string) {
	c.send(append([]byte(line), '\n'))
}

// Drops returns the number of records dropped to backpressure so far.
func (c *Channel) Drops() uint64 { return atomic.LoadUint64(&c.drops) }

// Shutdown signals the worker to exit, interrupting a polling FIFO open
// or a retried write; it returns without waiting for the worker to
// finish. A FIFO worker unlinks its output FIFO as it exits.
func (c *Channel) Shutdown() { close(c.done) }

func (c *Channel) send(record []byte) {
	select {
	case c.in <- record:
		return
	default:
	}
	select {
	case <-c.in:
		atomic.AddUint64(&c.drops, 1)
	default:
	}
	select {
	case c.in <- record:
	default:
	}
}

func (c *Channel) run() {
	switch c.cfg.Sink {
	case SinkPermafile:
		c.runPermafile()
	default:
		c.runFIFO()
	}
}

func (c *Channel) runPermafile() {
	f, err := os.OpenFile(c.cfg.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fifoMode)
	if err != nil {
		c.logger.WithError(err).Error("fanout: failed to open permafile output")
		return
	}
	defer f.Close()
	c.drainInto(f)
}

func (c *Channel) runFIFO() {
	_ = os.Remove(c.cfg.OutputPath)
	if err := syscall.Mkfifo(c.cfg.OutputPath, fifoMode); err != nil {
		c.logger.WithError(err).Error("fanout: failed to create FIFO")
		return
	}
	defer os.Remove(c.cfg.OutputPath)

	for {
		f, err := c.openFIFOForWrite()
		if err != nil {
			if errors.Is(err, errShutdown) {
				return
			}
			c.logger.WithError(err).Warn("fanout: FIFO open failed, retrying")
			continue
		}

		shutdown := c.drainInto(f)
		f.Close()
		if shutdown {
			return
		}
		// Reader closed its end; loop around and reopen.
	}
}

// openFIFOForWrite polls a non-blocking open until a reader attaches,
// checking for shutdown between attempts. This replaces the original's
// signal-interrupted blocking open with an explicit cancellation token.
func (c *Channel) openFIFOForWrite() (*os.File, error) {
	for {
		select {
		case <-c.done:
			return nil, errShutdown
		default:
		}

		f, err := os.OpenFile(c.cfg.OutputPath, os.O_WRONLY|syscall.O_NONBLOCK, fifoMode)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, syscall.ENXIO) {
			time.Sleep(reopenPoll)
			continue
		}
		return nil, err
	}
}

// drainInto writes queued records to w until the producer shuts down
// (returns true) or a write fails, e.g. because a FIFO reader went away
// (returns false, so the FIFO worker can reopen). A shutdown noticed
// while a write is being retried also returns false; the FIFO worker
// then exits at its next open attempt.
func (c *Channel) drainInto(w io.Writer) (shutdown bool) {
	for {
		select {
		case <-c.done:
			return true
		case record := <-c.in:
			if !c.writeAll(w, record) {
				return false
			}
		}
	}
}

func (c *Channel) writeAll(w io.Writer, record []byte) bool {
	for len(record) > 0 {
		n, err := w.Write(record)
		record = record[n:]
		if err == nil {
			continue
		}
		if errors.Is(err, syscall.EAGAIN) {
			select {
			case <-c.done:
				return false
			case <-time.After(writeRetry):
				continue
			}
		}
		return false
	}
	return true
}
