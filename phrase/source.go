package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const maxRemoteSize = 8 << 20

// Decode parses a phrase set. YAML is used for .yaml/.yml names, JSON otherwise.
func Decode(name string, data []byte) (Set, error) {
	var set Set
	if isYAML(name) {
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse yaml phrases: %w", err)
		}
		return set, nil
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse json phrases: %w", err)
	}
	return set, nil
}

// Encode serializes a set in the format matching name.
func Encode(name string, set Set) ([]byte, error) {
	if isYAML(name) {
		return yaml.Marshal(set)
	}
	return json.MarshalIndent(set, "", "  ")
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// FileSource reads the catalog from a local JSON or YAML file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Set, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Decode(s.Path, data)
}

// Save writes set to the file atomically.
func (s FileSource) Save(set Set) error {
	data, err := Encode(s.Path, set)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// HTTPSource downloads the catalog from a remote URL.
type HTTPSource struct {
	URL    string
	client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *HTTPSource) Load(ctx context.Context) (Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("phrase source returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return Decode(req.URL.Path, body)
}
