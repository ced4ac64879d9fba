// Package report writes the canonical daily solution record.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/gitrdm/railyard/internal/railyarderr"
	"github.com/gitrdm/railyard/internal/schedule"
)

// OutputPath returns the canonical path for a planning date under root, per
// §6: daily_solution/<YYYY-MM-DD>_solution_details.json.
func OutputPath(root, planningDate string) string {
	return filepath.Join(root, fmt.Sprintf("%s_solution_details.json", planningDate))
}

// Write marshals sol as indented JSON and writes it to the canonical output
// path under root, creating the directory if absent.
func Write(root, planningDate string, sol *schedule.Solution, log *logrus.Logger) error {
	path := OutputPath(root, planningDate)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return railyarderr.New(railyarderr.OutputWriteFailure, fmt.Errorf("creating %s: %w", root, err))
	}

	body, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return railyarderr.New(railyarderr.OutputWriteFailure, fmt.Errorf("marshaling solution: %w", err))
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		log.WithFields(logrus.Fields{"path": path}).Error("report: failed to write solution")
		return railyarderr.New(railyarderr.OutputWriteFailure, fmt.Errorf("writing %s: %w", path, err))
	}

	log.WithFields(logrus.Fields{
		"path":   path,
		"status": sol.SolverStatus,
	}).Info("report: solution written")
	return nil
}
