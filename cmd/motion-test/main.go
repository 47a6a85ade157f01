// motion-test is a command-line tool for exercising the PRU motion
// queue on real hardware: it enqueues a burst of constant-speed test
// segments, waits for them to drain, and shuts the queue down cleanly.
// Useful to verify firmware, wiring and the enable line without a full
// G-code stack.
//
// Usage:
//
//	motion-test -firmware motor-interface-pru.bin [options]
//
// Options:
//
//	-firmware string  PRU firmware image (required unless -dummy)
//	-dummy            Use the inert queue (protocol smoke test only)
//	-segments int     Number of test segments to enqueue (default: 32)
//	-steps int        Travel steps per segment (default: 200)
//	-delay int        Travel delay cycles per step (default: 2000)
//	-motor int        Motor to move, 1-based (default: 1)
//	-trace            Enable debug tracing
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/huleg/beagleg/pkg/gpio"
	"github.com/huleg/beagleg/pkg/log"
	"github.com/huleg/beagleg/pkg/motion"
	"github.com/huleg/beagleg/pkg/pruss"
)

func main() {
	firmwareFile := flag.String("firmware", "", "PRU firmware image (required unless -dummy)")
	dummy := flag.Bool("dummy", false, "Use the inert queue (protocol smoke test only)")
	segments := flag.Int("segments", 32, "Number of test segments to enqueue")
	steps := flag.Int("steps", 200, "Travel steps per segment")
	delay := flag.Int("delay", 2000, "Travel delay cycles per step")
	motor := flag.Int("motor", 1, "Motor to move, 1-based")
	trace := flag.Bool("trace", false, "Enable debug tracing")

	flag.Parse()

	logger := log.New("motion-test")
	log.ConfigureFromEnv(logger)
	if *trace {
		logger.SetLevel(log.DEBUG)
	}
	log.SetDefaultLogger(logger)

	if *motor < 1 || *motor > motion.MotorCount {
		fmt.Fprintf(os.Stderr, "Error: -motor must be 1..%d\n", motion.MotorCount)
		os.Exit(1)
	}
	if *steps < 1 || *steps > 0xffff {
		fmt.Fprintf(os.Stderr, "Error: -steps must be 1..65535\n")
		os.Exit(1)
	}

	var queue motion.MotionQueue
	if *dummy {
		queue = motion.NewDummyMotionQueue()
	} else {
		if *firmwareFile == "" {
			fmt.Fprintf(os.Stderr, "Error: -firmware is required (or use -dummy)\n")
			flag.Usage()
			os.Exit(1)
		}
		firmware, err := os.ReadFile(*firmwareFile)
		if err != nil {
			logger.Error("reading firmware: %v", err)
			os.Exit(1)
		}
		queue, err = motion.NewPRUMotionQueue(gpio.New(), pruss.New(), firmware)
		if err != nil {
			logger.Error("motion queue startup: %v", err)
			os.Exit(1)
		}
	}

	logger.Info("enqueueing %d segments of %d steps", *segments, *steps)
	queue.MotorEnable(true)

	// Alternate direction each segment so the test moves back and forth
	// instead of running off an axis.
	for i := 0; i < *segments; i++ {
		seg := &motion.MotionSegment{
			State:             motion.StateFilled,
			LoopsTravel:       uint16(*steps),
			TravelDelayCycles: uint32(*delay),
		}
		// The sub-step fraction of the moving motor follows the timing
		// reference one-to-one.
		seg.Fractions[*motor-1] = 0xffffffff
		if i%2 == 1 {
			seg.DirectionBits = 1 << uint(*motor-1)
		}
		queue.Enqueue(seg)
	}

	logger.Info("waiting for queue to drain")
	queue.WaitQueueEmpty()
	queue.MotorEnable(false)
	queue.Shutdown(true)
	logger.Info("done")
}
