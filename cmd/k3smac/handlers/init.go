package handlers

import (
	"context"
	"fmt"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/config/wizard"
)

// Wizard dependencies, replaced in tests.
var (
	runWizard   = wizard.Run
	writeConfig = wizard.WriteConfig
)

// Init runs the interactive configuration wizard and writes the result to
// outputPath.
func Init(ctx context.Context, advanced bool, outputPath string, force bool) error {
	if outputPath == "" {
		outputPath = config.DefaultFileName
	}

	result, err := runWizard(ctx, advanced)
	if err != nil {
		return fmt.Errorf("wizard aborted: %w", err)
	}

	cfg := wizard.BuildConfig(result)
	if err := writeConfig(cfg, outputPath, force); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", outputPath)
	fmt.Println("Next: run 'k3smac preflight' to validate the fleet.")
	return nil
}
