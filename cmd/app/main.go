package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"BrokerConsole/internal/di"
	"BrokerConsole/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	port := flag.Int("port", 0, "listen port (overrides config and CONSOLE_PORT)")
	check := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if *check {
		fmt.Printf("config ok: listen=%s:%d broker=%s session=%s\n",
			cfg.Server.Host, cfg.Server.Port, cfg.Broker.BaseURL, cfg.Session.Backend)
		return
	}

	log.Printf("env=%s broker=%s session=%s", cfg.Environment, cfg.Broker.BaseURL, cfg.Session.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
