package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/scraper"
	"gallerygrab/pkg/session"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	outputDir  = flag.String("output", "", "Output directory for downloads")
	concurrent = flag.Int("concurrent", 0, "Number of concurrent downloads")
	maxPages   = flag.Int("max-pages", 0, "Maximum pages to traverse per target")
	minWidth   = flag.Int("min-width", 0, "Minimum image width in pixels")
	minHeight  = flag.Int("min-height", 0, "Minimum image height in pixels")
	authConfig = flag.String("auth-config", "", "Path to the per-domain auth configuration file")
	headful    = flag.Bool("headful", false, "Run the browser with a visible window")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  gallerygrab [flags] <url> [<url>...]   extract and download media")
	fmt.Fprintln(os.Stderr, "  gallerygrab login <domain>             store credentials for a domain")
	fmt.Fprintln(os.Stderr, "  gallerygrab logout <domain>            delete stored credentials")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "login":
		runLogin(args[1:])
		return
	case "logout":
		runLogout(args[1:])
		return
	}

	flags := make(map[string]interface{})
	if *outputDir != "" {
		flags["output"] = *outputDir
	}
	if *concurrent > 0 {
		flags["concurrent"] = *concurrent
	}
	if *maxPages > 0 {
		flags["max-pages"] = *maxPages
	}
	if *minWidth > 0 {
		flags["min-width"] = *minWidth
	}
	if *minHeight > 0 {
		flags["min-height"] = *minHeight
	}
	if *authConfig != "" {
		flags["auth-config"] = *authConfig
	}
	if *headful {
		flags["headless"] = false
	}
	if *logLevel != "" {
		flags["log-level"] = *logLevel
	}

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := scraper.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize scraper")
		os.Exit(1)
	}
	defer s.Close()

	urls := args
	var summaries []*models.Summary

	if len(urls) == 1 {
		summary, err := s.Run(ctx, urls[0])
		if err != nil {
			log.WithError(err).WithField("url", urls[0]).Error("run failed")
			os.Exit(1)
		}
		summaries = append(summaries, summary)
	} else {
		summaries = s.RunBatch(ctx, urls)
	}

	failedRuns := 0
	for _, summary := range summaries {
		printSummary(summary)
		if summary.Downloaded == 0 && summary.Discovered == 0 && len(summary.Errors) > 0 {
			failedRuns++
		}
	}

	if failedRuns == len(summaries) {
		os.Exit(1)
	}
}

func printSummary(s *models.Summary) {
	fmt.Printf("\n%s (handler: %s)\n", s.TargetURL, s.Handler)
	fmt.Printf("  pages visited: %d (%s)\n", s.PagesVisited, s.Termination)
	fmt.Printf("  discovered:    %d\n", s.Discovered)
	fmt.Printf("  downloaded:    %d\n", s.Downloaded)
	fmt.Printf("  handed off:    %d\n", s.HandedOff)
	fmt.Printf("  skipped:       %d\n", s.Skipped)
	fmt.Printf("  deduplicated:  %d\n", s.Deduplicated)
	fmt.Printf("  failed:        %d\n", s.Failed)
	if len(s.Errors) > 0 {
		fmt.Printf("  errors:\n")
		for _, e := range s.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runLogin(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: gallerygrab login <domain>")
		os.Exit(1)
	}
	domain := strings.ToLower(strings.TrimSpace(args[0]))

	creds, err := session.PromptCredentials(domain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read credentials: %v\n", err)
		os.Exit(1)
	}

	mgr, err := session.NewCredentialManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "no credential store available: %v\n", err)
		os.Exit(1)
	}

	if err := mgr.Store(creds); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store credentials: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials stored for %s\n", domain)
}

func runLogout(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: gallerygrab logout <domain>")
		os.Exit(1)
	}
	domain := strings.ToLower(strings.TrimSpace(args[0]))

	mgr, err := session.NewCredentialManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "no credential store available: %v\n", err)
		os.Exit(1)
	}

	if err := mgr.Delete(domain); err != nil {
		fmt.Fprintf(os.Stderr, "failed to delete credentials: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials removed for %s\n", domain)
}
