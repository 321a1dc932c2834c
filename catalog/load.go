package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a catalog document from a JSON or YAML file, detected by
// extension.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return LoadBytes(data, path, logger)
}

// LoadBytes decodes a catalog document. The path is used only for format
// detection; pass "" for JSON bytes.
func LoadBytes(data []byte, path string, logger *slog.Logger) (*Catalog, error) {
	doc, err := decodeDocument(data, isYAML(path))
	if err != nil {
		return nil, err
	}
	return Parse(doc, logger)
}

// Fetch retrieves a catalog document over HTTP. YAML responses are detected
// from the Content-Type header; everything else decodes as JSON.
func Fetch(ctx context.Context, client *http.Client, url string, logger *slog.Logger) (*Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog from %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	yamlBody := strings.Contains(contentType, "yaml")

	doc, err := decodeDocument(data, yamlBody)
	if err != nil {
		return nil, err
	}
	return Parse(doc, logger)
}

// maxCatalogBytes caps catalog response bodies at 8 MB.
const maxCatalogBytes = 8 << 20

func decodeDocument(data []byte, fromYAML bool) (map[string]any, error) {
	if fromYAML {
		jsonData, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = jsonData
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog document: %w", err)
	}
	return doc, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON converts YAML bytes to JSON bytes via a generic decode, so a
// single typed unmarshal path handles both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, fmt.Errorf("converting YAML to JSON: %w", err)
	}
	return jsonData, nil
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
