// Command parse reconstructs one replay capture from files on disk and writes the game
// record as JSON.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"

	"github.com/jwebster45206/replay-engine/pkg/parser"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	replayPath     string
	tablePath      string
	assignmentPath string
	replayID       string
	perspective    string
	outPath        string
	verbose        bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.replayPath, "replay", "", "path to the saved replay page (required)")
	fs.StringVar(&opts.tablePath, "table", "", "path to the saved table page")
	fs.StringVar(&opts.assignmentPath, "assignment", "", "path to an assignment JSON payload")
	fs.StringVar(&opts.replayID, "id", "", "replay id (required)")
	fs.StringVar(&opts.perspective, "perspective", "", "player id the replay was captured from")
	fs.StringVar(&opts.outPath, "out", "", "output file (default stdout)")
	fs.BoolVar(&opts.verbose, "v", false, "log pipeline progress to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.replayPath == "" || opts.replayID == "" {
		fs.Usage()
		return errors.New("-replay and -id are required")
	}

	capture, err := loadCapture(opts)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rec, err := parser.New(logger).Parse(capture)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	data = append(data, '\n')

	if opts.outPath == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.outPath, err)
	}
	fmt.Fprintf(stderr, "Wrote %s (%d moves, winner %s)\n", opts.outPath, len(rec.Moves), rec.Winner)
	return nil
}

func loadCapture(opts options) (parser.Capture, error) {
	c := parser.Capture{
		ReplayID:          opts.replayID,
		PlayerPerspective: opts.perspective,
	}

	replayHTML, err := os.ReadFile(opts.replayPath)
	if err != nil {
		return c, fmt.Errorf("failed to read replay: %w", err)
	}
	c.ReplayHTML = string(replayHTML)

	if opts.tablePath != "" {
		tableHTML, err := os.ReadFile(opts.tablePath)
		if err != nil {
			return c, fmt.Errorf("failed to read table: %w", err)
		}
		c.TableHTML = string(tableHTML)
	}
	if opts.assignmentPath != "" {
		c.Assignment, err = os.ReadFile(opts.assignmentPath)
		if err != nil {
			return c, fmt.Errorf("failed to read assignment: %w", err)
		}
	}
	return c, nil
}
