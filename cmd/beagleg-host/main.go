// beagleg-host runs the PRU motion queue: it maps the GPIO registers,
// brings up the PRU subsystem, loads the stepper firmware and serves the
// queue diagnostics API until terminated.
//
// Usage:
//
//	beagleg-host -firmware motor-interface-pru.bin [options]
//
// Options:
//
//	-firmware string  PRU firmware image (required unless -dummy)
//	-dummy            Use the inert queue instead of PRU hardware
//	-status string    Queue status server address (default ":8107")
//	-logfile string   Log file path (default: stderr)
//	-trace            Enable debug tracing (per-segment dumps)
//
// Examples:
//
//	# Run against real hardware
//	beagleg-host -firmware /usr/lib/beagleg/motor-interface-pru.bin
//
//	# Exercise upstream logic without a PRU attached
//	beagleg-host -dummy -trace
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/huleg/beagleg/pkg/gpio"
	"github.com/huleg/beagleg/pkg/log"
	"github.com/huleg/beagleg/pkg/motion"
	"github.com/huleg/beagleg/pkg/pruss"
	"github.com/huleg/beagleg/pkg/status"
)

func main() {
	firmwareFile := flag.String("firmware", "", "PRU firmware image (required unless -dummy)")
	dummy := flag.Bool("dummy", false, "Use the inert queue instead of PRU hardware")
	statusAddr := flag.String("status", ":8107", "Queue status server address")
	logFile := flag.String("logfile", "", "Log file path (default: stderr)")
	trace := flag.Bool("trace", false, "Enable debug tracing")

	flag.Parse()

	logger := log.New("beagleg")
	log.ConfigureFromEnv(logger)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetWriter(f)
		logger.SetColorize(false)
	}
	if *trace {
		logger.SetLevel(log.DEBUG)
	}
	log.SetDefaultLogger(logger)

	var queue motion.MotionQueue
	var source status.Source

	if *dummy {
		q := motion.NewDummyMotionQueue()
		queue, source = q, q
		logger.Info("using dummy motion queue")
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
		q, err := motion.NewPRUMotionQueue(gpio.New(), pruss.New(), firmware)
		if err != nil {
			logger.Error("motion queue startup: %v", err)
			os.Exit(1)
		}
		queue, source = q, q
	}

	srv := status.New(status.Config{
		Addr:   *statusAddr,
		Source: source,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("status server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received %v, shutting down (flushing queue)", sig)

	srv.Stop()
	queue.Shutdown(true)
}
