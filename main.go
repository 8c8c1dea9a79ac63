package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anibaldeboni/zero-paper/cropwatch/config"
	"github.com/anibaldeboni/zero-paper/cropwatch/gateway"
	"github.com/anibaldeboni/zero-paper/cropwatch/metrics"
	"github.com/anibaldeboni/zero-paper/cropwatch/monitor"
	"github.com/anibaldeboni/zero-paper/cropwatch/mqttpub"
	"github.com/anibaldeboni/zero-paper/cropwatch/pump"
	"github.com/anibaldeboni/zero-paper/cropwatch/queue"
	"github.com/anibaldeboni/zero-paper/cropwatch/telemetry"
	"github.com/anibaldeboni/zero-paper/cropwatch/web"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	exampleConfig := flag.String("example-config", "", "Write an example configuration file and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	showVersionShort := flag.Bool("v", false, "Show version information (short)")
	flag.Parse()

	if *showVersion || *showVersionShort {
		fmt.Print(GetBuildInfo())
		return
	}

	if *exampleConfig != "" {
		if err := config.GenerateExampleConfig(*exampleConfig); err != nil {
			log.Fatalf("Failed to write example config: %v", err)
		}
		log.Printf("Example configuration written to %s", *exampleConfig)
		return
	}

	buildInfo := GetBuildInfo()
	log.Printf("Starting cropwatch %s %s %s", buildInfo.Version, buildInfo.Date, buildInfo.GoVersion)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Path == "" {
		log.Println("No configuration file found, using defaults")
	} else {
		log.Printf("Using configuration file %s", cfg.Path)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		log.Fatalf("Invalid plant profiles: %v", err)
	}
	eval, err := cfg.Evaluator()
	if err != nil {
		log.Fatalf("Invalid evaluation settings: %v", err)
	}

	// Configura graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gw *gateway.Client
	if cfg.Gateway.BaseURL != "" {
		gw, err = gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, gateway.WithTimeout(cfg.Gateway.Timeout))
		if err != nil {
			log.Fatalf("Failed to create gateway client: %v", err)
		}
	}

	src, closeSources, err := buildSource(cfg, gw)
	if err != nil {
		log.Fatalf("Failed to set up sensors: %v", err)
	}
	defer closeSources()

	m := metrics.New()
	acq := telemetry.NewAcquirer(src, cfg.AcquirerConfig())

	monitorOpts := []monitor.Option{monitor.WithObserver(m)}
	if cfg.MQTT.Enabled {
		client, err := mqttpub.Connect(cfg.MQTTConfig())
		if err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			publisher := mqttpub.NewPublisher(client, cfg.MQTTConfig())
			defer publisher.Close()
			monitorOpts = append(monitorOpts, monitor.WithPublisher(publisher))
		}
	}

	mon, err := monitor.New(acq, eval, catalog, cfg.MonitorConfig(), monitorOpts...)
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}

	webOpts := []web.Option{web.WithMetrics(m)}

	var pumpQueue *queue.Queue[pump.Command]
	if gw != nil && len(cfg.Pumps) > 0 {
		pumpQueue = newPumpQueue(ctx, cfg.QueueConfig(), gw, m)
		controller, err := pump.NewController(cfg.Pumps, pumpQueue)
		if err != nil {
			log.Fatalf("Invalid pump configuration: %v", err)
		}
		webOpts = append(webOpts, web.WithPumps(controller, pumpQueue))
	} else {
		log.Println("Pump control disabled: no gateway configured")
	}

	webServer := web.NewServer(ctx, mon, cfg.WebConfig(), webOpts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup para aguardar todos os componentes terminarem
	var wg sync.WaitGroup

	run := func(name string, start func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s error: %v", name, err)
			}
		}()
	}

	run("Monitor", func() error { return mon.Start(ctx) })
	run("Web server", webServer.Start)
	if pumpQueue != nil {
		run("Pump queue", pumpQueue.Start)
	}

	// Aguarda sinal de shutdown
	<-sigChan
	log.Println("Shutdown signal received")

	cancel()

	log.Println("Waiting for components to shutdown...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		log.Println("All components shutdown successfully")
	case <-time.After(cfg.Timeouts.ShutdownTimeout):
		log.Println("Shutdown timeout reached, forcing exit")
	}

	log.Println("Shutdown completed")
}

// newPumpQueue cria a fila que entrega os comandos das bombas ao gateway
func newPumpQueue(ctx context.Context, qc queue.QueueConfig, writer pump.PinWriter, m *metrics.Metrics) *queue.Queue[pump.Command] {
	hook := func(msg queue.Message[pump.Command], err error, final bool) {
		m.PumpCommand(msg.Data.Pump, err, final)
	}
	return queue.NewQueue[pump.Command](ctx, pump.NewWorker(writer), qc, queue.WithResultHook[pump.Command](hook))
}
