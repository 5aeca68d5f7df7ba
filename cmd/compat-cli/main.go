// Package main provides a CLI to run a backwards-compatibility pipeline
// against a local working tree, without a webhook server or GitHub App.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/micromamba"
	workflowfile "github.com/nathantilsley/compat-sentry/internal/pipeline/adapters/workflow_file"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/app"
	"github.com/nathantilsley/compat-sentry/internal/pipeline/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		workflowPath = flag.String("workflow", workflowfile.DefaultPath, "Path to the workflow definition, relative to the working tree")
		dir          = flag.String("dir", ".", "Working tree to run against")
		quiet        = flag.Bool("quiet", false, "Suppress per-step output, print only the summary")
	)
	flag.Parse()

	wf, err := workflowfile.Load(filepath.Join(*dir, *workflowPath))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	prov, err := micromamba.New()
	if err != nil {
		return err
	}
	svc := app.NewService(prov, prov, app.WithLogger(logger))

	// A local run behaves like a push to the workflow's designated branch.
	ev := domain.Event{Kind: domain.EventPush, Branch: wf.Triggers.PushBranch}

	fmt.Printf("Running workflow %q against %s\n\n", wf.Name, *dir)
	res, err := svc.Run(context.Background(), wf, ev, *dir)
	if err != nil {
		return err
	}

	printSteps(res, *quiet)

	passed, failed, skipped := domain.CountByStatus(res.Steps)
	fmt.Printf("\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)

	if res.Failed() {
		return fmt.Errorf("workflow %q failed", wf.Name)
	}
	fmt.Println("✓ All steps passed")
	return nil
}

func printSteps(res domain.RunResult, quiet bool) {
	for _, s := range res.Steps {
		switch s.Status {
		case domain.StatusPassed:
			fmt.Printf("✓ %s (%s)\n", s.Name, s.Duration)
		case domain.StatusFailed:
			fmt.Printf("✗ %s (%s): %s\n", s.Name, s.Duration, s.Err)
			if !quiet && s.Output != "" {
				fmt.Println(indent(s.Output, "    "))
			}
		case domain.StatusSkipped:
			fmt.Printf("- %s (skipped)\n", s.Name)
		}
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
