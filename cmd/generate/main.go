package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-engine/internal/backtest"
	"gopkg.in/yaml.v3"
)

const (
	schemaName = "argo-engine-config.json"
	paramsName = "argo-engine-params.json"
	sampleName = "argo-engine-config.yaml"
)

// generate writes the config and params schemas into dir, plus a sample config unless
// one already exists.
func generate(dir string) error {
	config := backtest.EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	schemaPath := filepath.Join(dir, schemaName)
	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return err
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	params, err := json.MarshalIndent(backtest.ParamsSchemas(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, paramsName), params, 0644); err != nil {
		return err
	}

	samplePath := filepath.Join(dir, sampleName)
	if _, err := os.Stat(samplePath); !os.IsNotExist(err) {
		return nil
	}

	yamlBytes, err := yaml.Marshal(backtest.SampleConfig())
	if err != nil {
		return err
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)
	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return err
	}

	log.Printf("Sample config successfully generated at %s", samplePath)

	return nil
}

func main() {
	dir := "./config"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := generate(dir); err != nil {
		log.Fatalf("Failed to generate config schema: %v", err)
	}
}
