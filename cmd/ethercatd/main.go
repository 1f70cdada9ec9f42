// Command ethercatd loads a main-device configuration, brings up a
// Distributed Clocks commissioning pass, and optionally records the
// result to the diagnostics database. It drives an in-memory loopback
// transport rather than a real NIC: raw-socket I/O is explicitly out of
// scope for this repository (see spec.md §1), so this binary exists to
// demonstrate wiring internal/config, internal/maindevice and
// internal/diagnostics together, not to run against real hardware.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ethercat-master/internal/command"
	"ethercat-master/internal/config"
	"ethercat-master/internal/demo"
	"ethercat-master/internal/diagnostics"
	"ethercat-master/internal/maindevice"
)

func main() {
	var cfgPath string
	var report bool
	flag.StringVar(&cfgPath, "config", "config/ethercatd.yaml", "path to YAML config")
	flag.BoolVar(&report, "report", true, "print the topology report after commissioning")
	flag.Parse()

	cfg, err := config.LoadYAML(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; cancel() }()

	transport, fixture := demo.NewLoopbackNetwork()

	md := maindevice.New(transport, maindevice.Config{
		PoolSize:             cfg.PDU.PoolSize,
		MaxPayload:           cfg.PDU.MaxPayload,
		SourceMAC:            cfg.ParsedSourceMAC(),
		StaticSyncIterations: cfg.DC.StaticSyncIterations,
		Command: command.Config{
			Timeout: cfg.PDU.PDUTimeout,
			Retry:   cfg.PDU.RetryPolicyValue(),
		},
	})

	runDone := make(chan struct{})
	go func() {
		if err := md.Run(ctx); err != nil {
			log.Printf("bus run exited: %v", err)
		}
		close(runDone)
	}()

	count, err := md.CountSubdevices(ctx)
	if err != nil {
		log.Fatalf("count subdevices: %v", err)
	}
	log.Printf("discovered %d sub-devices", count)

	if _, err := md.AssignConfiguredAddresses(ctx, count); err != nil {
		log.Fatalf("assign configured addresses: %v", err)
	}

	subdevices := fixture.Subdevices()
	startedAt := time.Now()
	if err := md.ConfigureDC(ctx, subdevices, uint64(startedAt.UnixNano())); err != nil {
		log.Fatalf("configure dc: %v", err)
	}

	run := diagnostics.NewRun(startedAt, subdevices)
	if report {
		log.Printf("\n%s", diagnostics.Report(run))
	}

	if cfg.Diagnostics.Enabled {
		store, err := diagnostics.Open(cfg.Diagnostics.DBPath)
		if err != nil {
			log.Fatalf("open diagnostics store: %v", err)
		}
		defer store.Close()
		if err := store.RecordRun(ctx, run); err != nil {
			log.Printf("record run: %v", err)
		}
	}

	cancel()
	<-runDone
}
