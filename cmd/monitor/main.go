package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"pixmonitor/internal/ai"
	"pixmonitor/internal/bcb"
	"pixmonitor/internal/config"
	"pixmonitor/internal/logging"
	"pixmonitor/internal/monitor"
	"pixmonitor/internal/notify"
	"pixmonitor/internal/state"
)

var (
	verbose = flag.Bool("v", false, "enable debug logging")
	dryRun  = flag.Bool("dry-run", false, "bypass persisted state and live fetching (same as PIXMON_FORCE_RESET=1)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *dryRun {
		cfg.ForceReset = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	client := &http.Client{Timeout: 30 * time.Second}

	fetcher := bcb.NewFetcher(client, cfg.Source.SearchURL, cfg.Source.DetailBaseURL, logger)
	extractor := bcb.NewExtractor(client, logger)
	summarizer := ai.NewSummarizer(cfg.Gemini, logger)

	var sender notify.Sender
	switch cfg.Channel {
	case config.ChannelEmail:
		sender = notify.NewEmailSender(cfg.SMTP)
	default:
		sender = notify.NewWhatsAppSender(cfg.Twilio)
	}
	notifier := notify.NewNotifier(sender, logger)

	store := state.NewStore(cfg.StatePath, logger)

	m := monitor.New(fetcher, extractor, summarizer, notifier, store, logger)
	m.DryRun = cfg.ForceReset

	if err := m.Run(context.Background()); err != nil {
		logger.Error("monitor run failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
