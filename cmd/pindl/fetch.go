package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pindl/pkg/config"
	"pindl/pkg/engine"
	"pindl/pkg/logger"
	"pindl/pkg/ui"
	"pindl/pkg/ui/tui"
)

var (
	// Fetch command flags
	outputDir string
	inputFile string
	maxPins   int
	timeout   int
	rateLimit int
	useTUI    bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [url ...]",
	Short: "Download media from Pinterest pin or profile URLs",
	Long: `Download the original-quality media behind one or more Pinterest URLs.

Accepts pin URLs, pin.it short links, profile URLs, and direct pinimg CDN
URLs. Profile URLs are expanded into the profile's pins before downloading.
URLs are read from arguments, from a file via --input, or from stdin when
neither is given.`,
	Example: `  # Download a single pin
  pindl fetch https://www.pinterest.com/pin/123456789012345678/

  # Download every pin of a profile, capped at 50
  pindl fetch https://www.pinterest.com/someuser/ --max-pins 50

  # Batch mode from a file, one URL per line
  pindl fetch --input urls.txt --output ./media

  # Pipe URLs in and watch progress in the TUI
  cat urls.txt | pindl fetch --tui`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads (default: ./downloads)")
	fetchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one URL per line")
	fetchCmd.Flags().IntVar(&maxPins, "max-pins", 0, "maximum pins collected per profile (0 = no cap)")
	fetchCmd.Flags().IntVar(&timeout, "timeout", 30, "HTTP timeout in seconds")
	fetchCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute")
	fetchCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

func runFetch(cmd *cobra.Command, args []string) error {
	inputText, err := collectInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(inputText) == "" {
		return fmt.Errorf("no URLs given: pass them as arguments, via --input, or on stdin")
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("max-pins") {
		flags["max-pins"] = maxPins
	}
	if timeout != 30 {
		flags["timeout"] = timeout
	}
	if rateLimit != 60 {
		flags["rate-limit"] = rateLimit
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Info("pindl starting")

	eng, err := engine.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events := eng.Run(ctx, inputText)

	if useTUI {
		return tui.Run(events, cancel)
	}
	return renderConsole(events)
}

// collectInput gathers the raw URL lines from arguments, the --input file,
// and stdin (when nothing else was given), in that order.
func collectInput(args []string) (string, error) {
	var lines []string
	lines = append(lines, args...)

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		lines = append(lines, string(data))
	}

	if len(lines) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		lines = append(lines, string(data))
	}

	return strings.Join(lines, "\n"), nil
}

// renderConsole prints the event stream as plain line-oriented output.
func renderConsole(events <-chan engine.Event) error {
	var crashed string

	for ev := range events {
		switch ev := ev.(type) {
		case engine.QueuePrepared:
			for _, note := range ev.Notes {
				ui.PrintWarning(note)
			}
			ui.PrintInfo("Queue", fmt.Sprintf("%d item(s)", len(ev.Items)))

		case engine.RowUpdate:
			switch ev.Status {
			case engine.StatusProcessing:
				if !quiet {
					fmt.Printf("  [%d] %s\n", ev.Index, ui.Dim(ev.ItemURL))
				}
			case engine.StatusDownloaded:
				ui.PrintSuccess(fmt.Sprintf("  [%d] saved %s", ev.Index, ev.SavedPath))
			case engine.StatusFailed:
				ui.PrintError(fmt.Sprintf("  [%d] failed", ev.Index), ev.Error)
			}

		case engine.Completed:
			summary := fmt.Sprintf("Done: %d/%d succeeded", ev.Success, ev.Total)
			if ev.Failed > 0 {
				summary += fmt.Sprintf(", %d failed", ev.Failed)
			}
			if ev.Cancelled {
				summary += " (cancelled)"
			}
			ui.PrintSuccess(summary)

		case engine.Crashed:
			crashed = ev.Message
		}
	}

	if crashed != "" {
		return fmt.Errorf("internal failure: %s", crashed)
	}
	return nil
}
