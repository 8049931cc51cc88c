// Command tracemortem is the postmortem replay entry point (§4.6),
// wiring a byte source through an optional TPIU demux into the ring
// buffer and ETM replay loop — mirroring the original orbmortem.c
// command-line shape.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/coresight-tools/mtrace/config"
	"github.com/coresight-tools/mtrace/errcode"
	"github.com/coresight-tools/mtrace/etm"
	"github.com/coresight-tools/mtrace/postmortem"
	"github.com/coresight-tools/mtrace/ring"
	"github.com/coresight-tools/mtrace/source"
)

// noopETMDecoder treats every replayed byte as one state change for a
// 2-byte instruction with no branch/commanded-address information, since a real ETM
// silicon decoder is out of scope (§1) and no symbol-aware instruction
// stream is available outside a loaded ELF.
type noopETMDecoder struct {
	last      etm.StateChange
	lastValid bool
}

func (n *noopETMDecoder) Pump(b byte) etm.Event {
	n.last = etm.StateChange{Width: 2}
	n.lastValid = true
	return etm.EventStateChange
}

func (n *noopETMDecoder) ForceSync(sync bool) {}

func (n *noopETMDecoder) LastChange() (etm.StateChange, bool) { return n.last, n.lastValid }

// validateConfig enforces the §7 Configuration-error checks that apply
// to postmortem replay: TPIU enabled with stream id 0, a ring buffer
// too small to hold a live byte, and a missing ELF image to resolve
// addresses against. All three fail at startup with a message rather
// than surfacing as a confusing empty replay.
func validateConfig(cfg config.Config, etmStreamID uint8) *errcode.E {
	if cfg.UseTPIU && etmStreamID == 0 {
		return errcode.New(errcode.TPIUStreamZero, "validateConfig", "-t requires a nonzero -e ETM stream id")
	}
	if cfg.PostmortemBufferKB*1024 < 2 {
		return errcode.New(errcode.IllegalBufferLen, "validateConfig", "-b must be large enough to hold at least one live byte")
	}
	if cfg.ELFPath == "" {
		return errcode.New(errcode.MissingELF, "validateConfig", "-elf is required for postmortem replay")
	}
	return nil
}

func main() {
	cfg := config.Default()

	var (
		sourceSpec  = flag.String("s", "", "source host[:port] to dial (TCP)")
		sourceFile  = flag.String("f", "", "read trace bytes from a file instead of the network")
		useTPIU     = flag.Bool("t", false, "demultiplex a TPIU frame stream ahead of ETM")
		etmStream   = flag.Uint("e", 2, "ETM stream id carried by the TPIU stream")
		bufKB       = flag.Int("b", config.DefaultPostmortemBufferKB, "postmortem ring buffer size in KiB")
		elfPath     = flag.String("elf", "", "ELF image to resolve postmortem addresses against")
		startAddr   = flag.Uint("a", 0, "initial working address for replay")
		metricsAddr = flag.String("metrics", "", "if set, serve Prometheus metrics on this address")
		verbosity   = flag.Int("v", int(logrus.WarnLevel), "log level, 0 (panic) .. 6 (trace)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.Level(*verbosity))

	cfg.SourceHost = *sourceSpec
	cfg.SourceFile = *sourceFile
	cfg.UseTPIU = *useTPIU
	cfg.PostmortemBufferKB = *bufKB
	cfg.ELFPath = *elfPath

	if err := validateConfig(cfg, uint8(*etmStream)); err != nil {
		logger.WithError(err).Error("tracemortem: invalid configuration")
		os.Exit(-1)
	}

	buf := ring.New(cfg.PostmortemBufferKB*1024, ring.ModeContinuous)
	monitor := postmortem.NewMonitor(buf, &noopETMDecoder{}, postmortem.NopOracle{}, uint32(*startAddr))
	demux := postmortem.NewDemux(cfg.UseTPIU, uint8(*etmStream), monitor, logger)

	if *metricsAddr != "" {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "mtrace_postmortem_ring_fill", Help: "Live bytes currently held in the postmortem ring buffer."},
			func() float64 { return float64(buf.Fill()) },
		))
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	go monitor.Run()
	defer monitor.Shutdown()

	stream := source.NewStream(cfg, logger)
	if err := stream.Run(demux); err != nil {
		logger.WithError(err).Fatal("tracemortem: source stream ended with an error")
	}

	for _, line := range monitor.Lines() {
		fmt.Printf("%-10s 0x%08x %s\n", line.Type, line.Addr, line.Text)
	}
}
