// Package source supplies the raw byte stream driving a pump.Pump: a
// TCP connection (dialed with backoff and wrapped for telemetry) or a
// plain file, read in fixed-size blocks (§6 EXPANSION "Byte-source
// ingress detail").
package source

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/config"
	"github.com/coresight-tools/mtrace/netstats"
)

// TransferSize is the default read block size when config.Config
// doesn't override it.
const TransferSize = 4096

// Feeder receives successive blocks read from the source, mirroring
// pump.Pump.Feed without importing that package (avoiding an import
// cycle with cmd/ wiring that may need both independently).
type Feeder interface {
	Feed(block []byte)
}

// Stream owns the underlying reader (a net.Conn or an *os.File) and
// pumps its bytes, in TransferSize blocks, into a Feeder until the
// source is exhausted or Close is called.
type Stream struct {
	cfg    config.Config
	logger logrus.FieldLogger

	closed chan struct{}
}

// NewStream builds a stream from cfg. Dial/open happens lazily in Run
// so construction never blocks or fails.
func NewStream(cfg config.Config, logger logrus.FieldLogger) *Stream {
	return &Stream{cfg: cfg, logger: logger, closed: make(chan struct{})}
}

// Close signals Run to stop reconnecting and return.
func (s *Stream) Close() { close(s.closed) }

// Run feeds bytes to feeder until the source is exhausted (file) or
// Close is called (TCP, unless cfg.EndTerminate is set, in which case a
// single connection is read to EOF and Run returns).
func (s *Stream) Run(feeder Feeder) error {
	if s.cfg.SourceFile != "" {
		return s.runFile(feeder)
	}
	return s.runTCP(feeder)
}

func (s *Stream) runFile(feeder Feeder) error {
	f, err := os.Open(s.cfg.SourceFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return pumpFrom(f, feeder, s.blockSize())
}

func (s *Stream) runTCP(feeder Feeder) error {
	addr := s.cfg.SourceHost
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(s.cfg.SourceHost, portString(s.cfg.SourcePort))
	}

	for {
		select {
		case <-s.closed:
			return nil
		default:
		}

		conn, err := net.Dial("tcp", addr)
		if err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Warn("source: dial failed, retrying")
			}
			if !s.sleepOrClosed(config.ReconnectBackoff) {
				return nil
			}
			continue
		}

		wrapped := netstats.Wrap(conn, s.reportConn)
		err = pumpFrom(wrapped, feeder, s.blockSize())
		wrapped.Close()

		if s.cfg.EndTerminate {
			return err
		}
		if err != nil && err != io.EOF && s.logger != nil {
			s.logger.WithError(err).Warn("source: connection read failed, reconnecting")
		}
		if !s.sleepOrClosed(config.ReconnectBackoff) {
			return nil
		}
	}
}

func (s *Stream) sleepOrClosed(d time.Duration) bool {
	select {
	case <-s.closed:
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Stream) reportConn(c *netstats.Conn, state netstats.State) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"conn_id":    c.ID,
		"state":      state.String(),
		"sent_bytes": c.SentBytes,
		"recv_bytes": c.RecvBytes,
	}).Info("source: connection state change")
}

func (s *Stream) blockSize() int {
	if s.cfg.TransferSize > 0 {
		return s.cfg.TransferSize
	}
	return TransferSize
}

func pumpFrom(r io.Reader, feeder Feeder, blockSize int) error {
	buf := make([]byte, blockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			feeder.Feed(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func portString(port int) string {
	if port == 0 {
		port = config.DefaultSourcePort
	}
	return strconv.Itoa(port)
}
