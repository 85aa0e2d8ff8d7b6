package v1alpha1

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// LoadFile reads, decodes, defaults, and validates a configuration document
// from the given path. Any error returned is a ConfigurationError in the
// sense of the error-handling design: fatal at process startup.
func LoadFile(path string) (*ManagerConfiguration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}
	return Load(raw)
}

// Load decodes, defaults, and validates a configuration document from raw
// YAML bytes.
func Load(raw []byte) (*ManagerConfiguration, error) {
	obj := &ManagerConfiguration{}
	if err := yaml.UnmarshalStrict(raw, obj); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	SetDefaults_ManagerConfiguration(obj)

	if err := ValidateManagerConfiguration(obj); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return obj, nil
}
