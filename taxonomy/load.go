package taxonomy

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

//go:embed biolink-subset.yaml
var embeddedModel []byte

// upstreamURLTemplate locates a released model by version tag.
const upstreamURLTemplate = "https://raw.githubusercontent.com/biolink/biolink-model/%s/biolink-model.yaml"

// maxModelSize caps a downloaded model file.
const maxModelSize = 32 * 1024 * 1024

// SourceEmbedded selects the bundled model subset.
const SourceEmbedded = "embedded"

// LoadSpec selects which taxonomy model to load. The zero value loads the
// embedded subset.
type LoadSpec struct {
	// Source is "embedded", a filesystem path, or empty (embedded).
	Source string
	// Version, when set and Source is empty or "embedded", fetches the
	// released model with that tag from upstream instead.
	Version string
	// HTTPClient is used for version fetches. Nil gets a 30s-timeout client.
	HTTPClient *http.Client
	// Logger records what was loaded. Nil uses slog.Default().
	Logger *slog.Logger
}

// Load resolves a LoadSpec into an immutable Taxonomy.
func Load(ctx context.Context, spec LoadSpec) (*Taxonomy, error) {
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case spec.Source != "" && spec.Source != SourceEmbedded:
		t, err := LoadFile(spec.Source)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded taxonomy model from file",
			"path", spec.Source,
			"name", t.Name(),
			"version", t.Version(),
			"classes", len(t.classes))
		return t, nil

	case spec.Version != "":
		t, err := LoadVersion(ctx, spec.Version, spec.HTTPClient)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded taxonomy model from upstream",
			"version", spec.Version,
			"name", t.Name(),
			"classes", len(t.classes))
		return t, nil

	default:
		t, err := LoadEmbedded()
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded embedded taxonomy model",
			"name", t.Name(),
			"version", t.Version())
		return t, nil
	}
}

// LoadEmbedded parses the bundled model subset.
func LoadEmbedded() (*Taxonomy, error) {
	return Parse(embeddedModel)
}

// LoadFile parses a model from a local YAML file.
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy model: %w", err)
	}
	return Parse(data)
}

// LoadVersion fetches and parses a released model by version tag.
func LoadVersion(ctx context.Context, version string, client *http.Client) (*Taxonomy, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	url := fmt.Sprintf(upstreamURLTemplate, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create model request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch taxonomy model %s: %w", version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch taxonomy model %s: unexpected status %d", version, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModelSize))
	if err != nil {
		return nil, fmt.Errorf("read taxonomy model %s: %w", version, err)
	}
	return Parse(data)
}
