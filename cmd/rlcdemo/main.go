// Command rlcdemo wires a pair of AM entities back to back over a
// simulated lossy channel and drives them with an externally-ticked timer
// wheel, the same cooperative loop shape as a real MAC scheduler would use.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	rlc "github.com/kailiu-bupt2005/librlc-lte"
	"github.com/kailiu-bupt2005/librlc-lte/internal/fifo"
	"github.com/kailiu-bupt2005/librlc-lte/internal/timerwheel"
)

func main() {
	var (
		pduBytes  = flag.Int("pdu-bytes", 40, "MAC grant size per PDU")
		sduCount  = flag.Int("sdus", 20, "number of SDUs to send")
		lossEvery = flag.Int("loss-every", 7, "drop every Nth PDU on the A->B channel (0 disables loss)")
		ticks     = flag.Int("ticks", 400, "timer wheel ticks to run")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	wheel := timerwheel.New(1024)
	cfg := rlc.DefaultAMConfig()
	cfg.PollPDU = 4

	tx := rlc.NewAMEntity(wheel, cfg)
	rx := rlc.NewAMEntity(wheel, cfg)

	airAtoB := fifo.New(64)
	airBtoA := fifo.New(64)

	delivered := 0
	rx.SetDeliverCallback(func(data []byte) {
		delivered++
		fmt.Printf("delivered sdu %q\n", string(data))
	})
	tx.SetMaxRetxCallback(func(sn uint32, retxCount uint32) int {
		log.Warnf("sn=%d hit max retransmissions (%d), tearing down", sn, retxCount)
		return 1
	})

	for i := 0; i < *sduCount; i++ {
		msg := []byte(fmt.Sprintf("message-%02d", i))
		if err := tx.EnqueueSDU(msg, nil, nil); err != nil {
			log.Fatalf("enqueue: %v", err)
		}
	}

	pduSeq := 0
	for tick := 0; tick < *ticks; tick++ {
		if buf, ok := airAtoB.Pop(); ok {
			if err := rx.ProcessPDU(buf, nil, nil); err != nil {
				log.Warnf("rx.ProcessPDU: %v", err)
			}
		}
		if buf, ok := airBtoA.Pop(); ok {
			if err := tx.ProcessPDU(buf, nil, nil); err != nil {
				log.Warnf("tx.ProcessPDU: %v", err)
			}
		}

		if tx.PendingBytes() > 0 {
			out := make([]byte, *pduBytes)
			n, kind, err := tx.BuildPDU(out)
			if err != nil && err != rlc.ErrNoData && err != rlc.ErrTxWindowFull {
				log.Warnf("tx.BuildPDU: %v", err)
			}
			if n > 0 {
				pduSeq++
				dropped := *lossEvery > 0 && pduSeq%*lossEvery == 0
				log.Debugf("tick=%d tx built %s pdu bytes=%d dropped=%v", tick, kind, n, dropped)
				if !dropped {
					airAtoB.Push(append([]byte(nil), out[:n]...))
				}
			}
		}
		if rx.PendingBytes() > 0 {
			out := make([]byte, *pduBytes)
			n, kind, err := rx.BuildPDU(out)
			if err != nil && err != rlc.ErrNoData && err != rlc.ErrTxWindowFull {
				log.Warnf("rx.BuildPDU: %v", err)
			}
			if n > 0 {
				airBtoA.Push(append([]byte(nil), out[:n]...))
				log.Debugf("tick=%d rx built %s pdu bytes=%d", tick, kind, n)
			}
		}

		wheel.Advance(1)
	}

	fmt.Printf("delivered %d/%d SDUs after %d ticks\n", delivered, *sduCount, *ticks)
	if delivered != *sduCount {
		os.Exit(1)
	}
}
