package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/k3smac/k3smac/internal/config"
)

// WriteConfig writes the config to a YAML file with a descriptive header.
// It refuses to overwrite an existing file unless force is set.
func WriteConfig(cfg *config.Config, outputPath string, force bool) error {
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("%s already exists, re-run with --force to overwrite", outputPath)
		}
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader())
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func generateHeader() string {
	return fmt.Sprintf(`# k3smac cluster configuration
# Generated by 'k3smac init' on %s
#
# Unset fields fall back to built-in defaults; run 'k3smac preflight' to
# validate this file against the fleet before provisioning.
`, time.Now().Format("2006-01-02 15:04:05"))
}
