package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flowcanvas/flowcanvas/schema"
)

// NewInspectCmd creates the "inspect" subcommand.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Extract metadata, defaults and constraints from a schema or catalog file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	cmd.Flags().String("view", "all", "View: metadata | defaults | constraints | all")
	cmd.Flags().String("path", "", "Inspect a single dotted property path")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	view, _ := cmd.Flags().GetString("view")
	path, _ := cmd.Flags().GetString("path")
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return fmt.Errorf("reading file: %w", err)
	}

	jsonData, err := yamlToJSONIfNeeded(data, filePath)
	if err != nil {
		return exitError(exitInputParse, "parsing file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	model, err := schema.ParseModel(jsonData, schema.WithLogger(logger))
	if err != nil {
		return exitError(exitInputParse, "parsing schema document: %v", err)
	}

	if path != "" {
		return printPathInspection(out, model, path)
	}

	result := make(map[string]any)
	switch view {
	case "metadata":
		result["metadata"] = model.AllMetadata()
	case "defaults":
		result["defaults"] = model.ObjectFromSchema()
	case "constraints":
		result["constraints"] = model.AllConstraints()
	case "all":
		result["metadata"] = model.AllMetadata()
		result["defaults"] = model.ObjectFromSchema()
		result["constraints"] = model.AllConstraints()
	default:
		return exitError(exitValidation, "unknown view %q (want metadata, defaults, constraints or all)", view)
	}

	return printIndentedJSON(out, result)
}

// printPathInspection prints everything the model knows about one dotted
// property path.
func printPathInspection(w io.Writer, model *schema.Model, path string) error {
	record := model.PropertyMetadata(path)
	if record == nil {
		return exitError(exitValidation, "no property at path %q", path)
	}

	return printIndentedJSON(w, map[string]any{
		"path":        path,
		"metadata":    record,
		"type":        model.PropertyType(path),
		"default":     model.PropertyDefault(path),
		"constraints": model.PropertyConstraints(path),
		"enum":        model.PropertyEnum(path),
		"required":    model.IsPropertyRequired(path),
	})
}

func printIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// yamlToJSONIfNeeded converts YAML data to JSON if the file path indicates a
// YAML file. JSON files are returned as-is.
func yamlToJSONIfNeeded(data []byte, path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return json.Marshal(normalizeYAML(raw))
	}
	return data, nil
}

func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
