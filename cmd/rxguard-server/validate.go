package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/dosing"
	"github.com/healthflow/rxguard/internal/domain/medication"
	"github.com/healthflow/rxguard/internal/domain/validation"
)

// validateCmd runs one prescription through the engine without a server.
// Exit code 1 means the prescription was blocked, which lets shell pipelines
// gate on the verdict.
func validateCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate <prescription.json>",
		Short: "Validate a prescription file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			result, err := runOneShot(catalogPath, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Status() == validation.StatusBlocked {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "medication catalog file (JSON or CSV)")
	cmd.MarkFlagRequired("catalog")
	return cmd
}

func runOneShot(catalogPath, prescriptionPath string) (*validation.ValidationResult, error) {
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	catalog := medication.NewCatalog()
	loader := medication.NewLoader(catalog, logger)
	if _, err := loader.LoadFile(catalogPath); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	raw, err := os.ReadFile(prescriptionPath)
	if err != nil {
		return nil, fmt.Errorf("read prescription: %w", err)
	}
	var p validation.Prescription
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse prescription: %w", err)
	}

	engine := validation.NewService(catalog,
		ddi.NewDetector(logger),
		dosing.NewDetector(logger),
		logger).
		WithEnsemble(ddi.NewEnsemble(logger))
	return engine.Validate(&p)
}
