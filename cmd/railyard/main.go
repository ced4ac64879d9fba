// Command railyard plans one day of metro fleet induction and service
// assignment from a daily input record.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/railyard/internal/config"
	"github.com/gitrdm/railyard/internal/ingest"
	"github.com/gitrdm/railyard/internal/railyarderr"
	"github.com/gitrdm/railyard/internal/report"
	"github.com/gitrdm/railyard/internal/schedule"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func main() {
	cfg := config.Load()

	var timeBudgetSeconds int

	root := &cobra.Command{
		Use:   "railyard",
		Short: "Plan daily metro fleet induction, service, and cleaning assignments",
	}
	root.PersistentFlags().StringVar(&cfg.InputDir, "input-dir", cfg.InputDir, "root directory holding daily_input/<date>_input_data.json")
	root.PersistentFlags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "root directory to write daily_solution/<date>_solution_details.json")
	root.PersistentFlags().IntVar(&timeBudgetSeconds, "time-budget", 0, "solver wall-clock budget in seconds (0 = use the per-variant default)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")

	solveCmd := &cobra.Command{
		Use:   "solve <YYYY-MM-DD>",
		Short: "Solve the induction/assignment model for one planning date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if !datePattern.MatchString(date) {
				return railyarderr.Newf(railyarderr.BadInput, "planning date %q must be YYYY-MM-DD", date)
			}
			if timeBudgetSeconds > 0 {
				d := time.Duration(timeBudgetSeconds) * time.Second
				cfg.VariantATimeBudget = d
				cfg.VariantBTimeBudget = d
			}
			return runSolve(cmd.Context(), cfg, date)
		},
	}
	root.AddCommand(solveCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		kind := railyarderr.BadInput
		var rerr *railyarderr.Error
		if errors.As(err, &rerr) {
			kind = rerr.Kind
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(kind.ExitCode())
	}
}

func runSolve(ctx context.Context, cfg *config.Config, date string) error {
	log := config.NewLogger(cfg)
	log.WithFields(logrus.Fields{"run_id": uuid.NewString(), "planning_date": date}).Info("railyard: starting solve")

	model, err := ingest.Load(cfg.InputDir, date, log)
	if err != nil {
		return err
	}

	budget := cfg.VariantATimeBudget
	if model.NextDayStarts != nil {
		budget = cfg.VariantBTimeBudget
	}

	res, solveErr := schedule.SolveWithSeed(ctx, model, budget, cfg.RandomSeed, log)
	if solveErr != nil && res == nil {
		return solveErr
	}

	var sol *schedule.Solution
	if res.Values != nil {
		sol, err = schedule.Extract(model, res)
		if err != nil {
			return err
		}
	} else {
		sol = schedule.EmptySolution(model, res.Status)
	}

	if writeErr := report.Write(cfg.OutputDir, date, sol, log); writeErr != nil {
		return writeErr
	}

	return solveErr
}
