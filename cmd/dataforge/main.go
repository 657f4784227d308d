// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/dataforge"
	"github.com/poiesic/dataforge/operators"
	"github.com/poiesic/dataforge/pipeline"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the pipeline YAML file",
		Required: true,
	}
	return &cli.App{
		Name:  "dataforge",
		Usage: "Run LLM dataset pipelines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run every step of a pipeline",
				Action: runCommand,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Skip steps whose output is already recorded",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print step progress to stderr",
					},
				},
			},
			{
				Name:   "check",
				Usage:  "Validate a pipeline file and build its steps without running them",
				Action: checkCommand,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "operators",
				Usage:  "List registered operators",
				Action: operatorsCommand,
			},
			{
				Name:      "describe",
				Usage:     "Describe an operator",
				ArgsUsage: "<operator>",
				Action:    describeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Description language (en, zh)",
						Value: "en",
					},
				},
			},
			{
				Name:   "stages",
				Usage:  "List the recorded stages of a pipeline",
				Action: stagesCommand,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Forget every recorded stage",
					},
				},
			},
		},
	}
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	config, err := pipeline.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	if c.Bool("resume") {
		config.Resume = true
	}

	var opts []dataforge.WorkspaceOption
	if c.Bool("progress") {
		opts = append(opts, dataforge.WithProgress(c.App.ErrWriter))
	}
	ws, err := dataforge.NewWorkspace(ctx, config, opts...)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer ws.Close()

	result, err := ws.Run(ctx)
	if result != nil {
		printResult(c.App.Writer, result)
	}
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result *pipeline.Result) {
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	for _, step := range result.Steps {
		if step.Skipped {
			fmt.Fprintf(w, "  %-32s skipped\n", step.Name)
			continue
		}
		fmt.Fprintf(w, "  %-32s %8s  %s\n", step.Name, step.Duration.Round(1e6), strings.Join(step.Columns, ", "))
	}
}

func checkCommand(c *cli.Context) error {
	ctx := context.Background()

	ws, err := dataforge.Open(ctx, c.String("config"))
	if err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}
	defer ws.Close()

	if err := ws.Pipeline().Check(); err != nil {
		return fmt.Errorf("invalid pipeline: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s: %d steps ok\n", ws.Config().Name, len(ws.Pipeline().Steps()))
	return nil
}

func operatorsCommand(c *cli.Context) error {
	reg, err := operators.NewRegistry()
	if err != nil {
		return err
	}
	for _, name := range reg.Names() {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func describeCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("operator name is required")
	}
	reg, err := operators.NewRegistry()
	if err != nil {
		return err
	}
	desc, err := reg.Describe(name, strings.ToLower(c.String("lang")))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, desc)
	return nil
}

func stagesCommand(c *cli.Context) error {
	ctx := context.Background()

	ws, err := dataforge.Open(ctx, c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to open pipeline: %w", err)
	}
	defer ws.Close()

	if c.Bool("clear") {
		if err := ws.ClearStages(ctx); err != nil {
			return fmt.Errorf("failed to clear stages: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "%s: stages cleared\n", ws.Config().Name)
		return nil
	}

	records, err := ws.Stages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stages: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintf(c.App.Writer, "%s: no recorded stages\n", ws.Config().Name)
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(c.App.Writer, "%3d  %-8s %6d rows  %s\n", rec.Stage, rec.Format, rec.Rows, rec.Path)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
