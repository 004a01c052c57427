package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceType classifies a ServiceDefinition per §3/§4.D.
type ServiceType string

const (
	ServiceTypeCore    ServiceType = "core"
	ServiceTypeFeature ServiceType = "feature"
	ServiceTypeExternal ServiceType = "external"
	ServiceTypeUtility ServiceType = "utility"
)

// ServiceDefinition is the loaded-at-startup, never-mutated-thereafter
// description of a registrable service (§3).
type ServiceDefinition struct {
	Name             string            `yaml:"name"`
	ServiceType      ServiceType       `yaml:"service_type"`
	Interface        string            `yaml:"interface,omitempty"`
	Implementation   string            `yaml:"implementation,omitempty"`
	DependsOn        []string          `yaml:"depends_on,omitempty"`
	HealthCheck      bool              `yaml:"health_check"`
	HealthInterval   time.Duration     `yaml:"-"`
	HealthIntervalSeconds int          `yaml:"health_interval_seconds"`
	TimeoutSeconds   int               `yaml:"timeout_seconds"`
	Retries          int               `yaml:"retries"`
	Metadata         map[string]string `yaml:"metadata,omitempty"`
}

// Timeout returns the per-service health-check timeout, falling back to a
// sane default when unset.
func (d ServiceDefinition) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

type serviceDefinitionsFile struct {
	Services []ServiceDefinition `yaml:"services"`
}

// LoadServiceDefinitions reads services.yaml from homeDir. A missing file is
// not an error: it yields an empty list, since discovery (§4.D) can
// auto-register services the registry finds some other way.
func LoadServiceDefinitions(homeDir string) ([]ServiceDefinition, error) {
	path := homeDir + "/services.yaml"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file serviceDefinitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range file.Services {
		if file.Services[i].HealthIntervalSeconds <= 0 {
			file.Services[i].HealthIntervalSeconds = 60
		}
		file.Services[i].HealthInterval = time.Duration(file.Services[i].HealthIntervalSeconds) * time.Second
		if file.Services[i].ServiceType == "" {
			file.Services[i].ServiceType = ServiceTypeUtility
		}
	}
	return file.Services, nil
}
