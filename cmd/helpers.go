package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gstportal/internal/config"
	"gstportal/internal/extraction"
	"gstportal/internal/govdata"
	"gstportal/internal/logger"
	"gstportal/internal/portal"
	"gstportal/internal/store"
	"gstportal/pkg/models"
)

// openLedger opens the JSON ledger file, creating it on first use.
func openLedger(path string) (store.Store, error) {
	ledger, err := store.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice ledger %s: %w", path, err)
	}
	return ledger, nil
}

// newPortalService builds the portal service from the environment
// configuration. The Gemini extraction client is only constructed when
// withExtractor is set; query and reconciliation commands work without an
// API key.
func newPortalService(withExtractor bool) (*portal.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newPortalServiceWith(cfg, withExtractor)
}

func newPortalServiceWith(cfg *config.Config, withExtractor bool) (*portal.Service, error) {
	log := logger.WithComponent("cmd-setup")

	ledger, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	var extractor extraction.Extractor
	if withExtractor {
		extractorConfig := extraction.DefaultConfig()
		extractorConfig.APIKey = cfg.GeminiAPIKey
		extractorConfig.Model = cfg.GeminiModel
		extractorConfig.Endpoint = cfg.GeminiEndpoint
		extractorConfig.Timeout = cfg.ExtractionTimeout

		extractor, err = extraction.NewGeminiExtractor(extractorConfig)
		if err != nil {
			log.Error().
				Err(err).
				Msg("Failed to create Gemini extraction client")
			return nil, fmt.Errorf("missing Gemini configuration. Please set:\n"+
				"  GEMINI_API_KEY=<your-api-key>\n"+
				"Optionally:\n"+
				"  GEMINI_MODEL=gemini-2.5-flash\n"+
				"  GEMINI_ENDPOINT=https://generativelanguage.googleapis.com/v1beta\n"+
				"Original error: %w", err)
		}
	}

	govt := govdata.NewSyntheticSource(cfg.SyntheticSeed)

	log.Debug().
		Str("ledger", cfg.LedgerPath).
		Bool("extractor", withExtractor).
		Msg("Portal service created")
	return portal.New(extractor, govt, ledger), nil
}

// commandContext creates a context with timeout and signal handling so a
// Ctrl-C cancels in-flight API calls and filing updates cleanly.
func commandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// formatCurrency renders a decimal amount as Indian rupees with the
// standard Indian digit grouping (lakh/crore), e.g. "₹ 12,34,567.89".
func formatCurrency(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	dot := strings.IndexByte(fixed, '.')
	intPart, fracPart := fixed[:dot], fixed[dot:]

	grouped := intPart
	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		grouped = strings.Join(append(groups, tail), ",")
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s₹ %s%s", sign, grouped, fracPart)
}

// shortID abbreviates a record id for table display.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// resolveRecordID expands an abbreviated id to the unique full id it
// prefixes. Ambiguous or unknown prefixes are an error.
func resolveRecordID(records []models.InvoiceRecord, id string) (string, error) {
	var match string
	for _, rec := range records {
		if rec.ID == id {
			return id, nil
		}
		if strings.HasPrefix(rec.ID, id) {
			if match != "" {
				return "", fmt.Errorf("ambiguous invoice id %q: matches multiple records", id)
			}
			match = rec.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no invoice found with id %q", id)
	}
	return match, nil
}

// confirm prompts on stdout and reads a y/N answer from the command's
// input stream.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
