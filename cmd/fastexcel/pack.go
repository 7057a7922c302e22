package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	v1 "github.com/wuxianggujun/FastExcel-sub003/apis/v1"
	"github.com/wuxianggujun/FastExcel-sub003/internal/runner"
)

var packCommand = &cli.Command{
	Name:  "pack",
	Usage: "Run a pack job: collect inputs, compress, and deliver the archive",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job templates (can be repeated)",
		},
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "Set a template variable as KEY=VALUE (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to run",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, err := loadJob(command)
		if err != nil {
			return err
		}

		injector := runner.BuildContainer(logger)
		defer injector.Shutdown()

		r, err := runner.New(ctx, logger.Named("runner"), job,
			runner.WithFilesystem(do.MustInvoke[afero.Fs](injector)))
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		return nil
	},
}

// loadJob reads, parses, and template-expands the job file named by the
// command's job argument.
func loadJob(command *cli.Command) (v1.PackJob, error) {
	jobFilename := command.StringArg("job")
	if jobFilename == "" {
		return v1.PackJob{}, fmt.Errorf("no job file provided")
	}

	jobFile, err := os.ReadFile(jobFilename)
	if err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
	}

	job, err := runner.ParsePackJob(jobFile)
	if err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to parse job: %w", err)
	}

	overrides, err := parseOverrides(command.StringSlice("set"))
	if err != nil {
		return v1.PackJob{}, err
	}

	variables, err := runner.BuildVariables(job, command.StringSlice("allowed-env"), overrides)
	if err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to build variables: %w", err)
	}

	if err := runner.ExpandTemplates(&job, variables); err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to expand templates: %w", err)
	}

	return job, nil
}

func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q: expected KEY=VALUE", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}
