package hostsim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Fixtures is the on-disk form of canned host answers. JSON, YAML and TOML
// files are accepted, selected by extension.
type Fixtures struct {
	SDKVersion string              `json:"sdkVersion,omitempty" yaml:"sdkVersion" toml:"sdkVersion"`
	Methods    map[string]Response `json:"methods" yaml:"methods" toml:"methods"`
}

// ParseFixtures decodes fixtures in the given format ("json", "yaml" or "toml").
func ParseFixtures(data []byte, format string) (*Fixtures, error) {
	var f Fixtures
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &f)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		_, err = toml.Decode(string(data), &f)
	default:
		return nil, fmt.Errorf("%s - unsupported fixtures format %q", logPrefix, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse %s fixtures: %w", logPrefix, format, err)
	}
	return &f, nil
}

// LoadFixtures reads a fixtures file and installs a static handler per method.
// A returnCode of 0 (or none) means success.
func (s *Simulator) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s - failed to read fixtures %s: %w", logPrefix, path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "json"
	}
	f, err := ParseFixtures(data, format)
	if err != nil {
		return fmt.Errorf("%s - %s: %w", logPrefix, path, err)
	}
	s.Apply(f)
	return nil
}

// Apply installs f's answers, replacing any handler already registered for the same method.
func (s *Simulator) Apply(f *Fixtures) {
	if f.SDKVersion != "" {
		s.Handle("getSdkVersion", Static(OK(f.SDKVersion)))
	}
	for method, resp := range f.Methods {
		if resp.ReturnCode == 0 {
			resp.ReturnCode = 1
		}
		s.Handle(method, Static(resp))
	}
}
