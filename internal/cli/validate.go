package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"scenario-solver-service/internal/domain"
	"scenario-solver-service/internal/engine"
	"scenario-solver-service/internal/infra/files"
)

type fileReport struct {
	File   string                   `json:"file"`
	Error  string                   `json:"error,omitempty"`
	Report *domain.ValidationReport `json:"report,omitempty"`
}

// NewValidateCmd checks scenario files without starting the server.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenario definition files and print their reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newConsoleLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			_, failed := validateFiles(engine.New(log), args, cmd.OutOrStdout())
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario file(s) failed validation", failed, len(args))
			}
			return nil
		},
	}
}

// validateFiles prints one JSON report per file and returns the definitions
// that are fit to publish.
func validateFiles(eng *engine.Engine, names []string, out io.Writer) ([]domain.ScenarioDefinition, int) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	var ok []domain.ScenarioDefinition
	failed := 0
	for _, name := range names {
		entry := fileReport{File: name}
		def, err := files.ReadFile(name)
		if err == nil {
			var report domain.ValidationReport
			report, err = eng.Validate(def)
			if err == nil {
				entry.Report = &report
				if report.Usable() {
					ok = append(ok, def)
				} else {
					failed++
				}
			}
		}
		if err != nil {
			entry.Error = err.Error()
			failed++
		}
		_ = enc.Encode(entry)
	}
	return ok, failed
}
