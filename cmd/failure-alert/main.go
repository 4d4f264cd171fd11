// Command failure-alert texts the operators that the watcher has died. It
// is run by the process supervisor after the watcher exits.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/notify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sender, err := notify.NewSMSSender(ctx, cfg.Notify.SMS)
	if err != nil {
		log.Fatalf("Failed to create SMS sender: %v", err)
	}
	if err := notify.SendAlert(ctx, sender, cfg.Alerts.Numbers, cfg.Alerts.Message); err != nil {
		log.Fatalf("Failed to send failure alert: %v", err)
	}
	log.Printf("Failure alert sent to %d numbers", len(cfg.Alerts.Numbers))
}
