// Package catalog seeds the base-resource catalog from files produced by
// the offline portrait generator.
package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"portrait-pipeline/internal/model"
	"portrait-pipeline/internal/store"
)

// Format names a supported input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown catalog format: %s", path)
	}
}

// Read decodes base resources from r.
func Read(r io.Reader, format Format) ([]model.BaseResource, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	case FormatYAML:
		return readYAML(r)
	default:
		return nil, fmt.Errorf("unknown catalog format: %s", format)
	}
}

// ImportFile reads path and writes every record into the catalog.
func ImportFile(ctx context.Context, path string, catalog store.Catalog, log *zap.Logger) (int, error) {
	format, err := FormatOf(path)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	resources, err := Read(file, format)
	if err != nil {
		return 0, err
	}
	return Import(ctx, resources, catalog, log)
}

// Import validates every record before writing any. Records without a
// resource id get a random one.
func Import(ctx context.Context, resources []model.BaseResource, catalog store.Catalog, log *zap.Logger) (int, error) {
	for i := range resources {
		if err := validate(&resources[i]); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		if resources[i].ResourceID == "" {
			resources[i].ResourceID = uuid.NewString()
		}
	}

	for i := range resources {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := catalog.PutBaseResource(ctx, &resources[i]); err != nil {
			return i, err
		}
	}

	log.Info("catalog imported", zap.Int("records", len(resources)))
	return len(resources), nil
}

func validate(res *model.BaseResource) error {
	res.Theme = strings.TrimSpace(res.Theme)
	res.Gender = strings.TrimSpace(res.Gender)
	res.Skin = strings.TrimSpace(res.Skin)
	res.BaseImageKey = strings.TrimSpace(res.BaseImageKey)

	// The triple ends up inside object names, so it obeys the same rules
	// as request fields.
	for _, f := range []struct{ name, value string }{
		{"theme", res.Theme},
		{"gender", res.Gender},
		{"skin", res.Skin},
	} {
		if err := model.CheckNameField(f.name, f.value); err != nil {
			return err
		}
	}
	if res.BaseImageKey == "" {
		return &model.ValidationError{Field: "baseImageKey", Reason: "is required"}
	}
	return nil
}

func readCSV(r io.Reader) ([]model.BaseResource, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		// Clean header names: trim whitespace and quotes
		clean := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		columns[strings.ToLower(clean)] = i
	}

	field := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := columns[strings.ToLower(name)]; ok && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	var out []model.BaseResource
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}
		out = append(out, model.BaseResource{
			ResourceID:   field(row, "resourceId", "uuid"),
			Theme:        field(row, "theme"),
			Gender:       field(row, "gender"),
			Skin:         field(row, "skin", "skin_tone"),
			BaseImageKey: field(row, "baseImageKey", "base_image_object_key"),
			Story:        field(row, "story"),
		})
	}
}

func readJSON(r io.Reader) ([]model.BaseResource, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON body: %w", err)
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var single model.BaseResource
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return []model.BaseResource{single}, nil
	}

	var out []model.BaseResource
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return out, nil
}

func readYAML(r io.Reader) ([]model.BaseResource, error) {
	var out []model.BaseResource
	if err := yaml.NewDecoder(r).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return out, nil
}
