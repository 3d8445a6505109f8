package config

import (
	"errors"
	"fmt"
	"os"
	"shuttle-route-service/internal/domain"
	"strings"

	"gopkg.in/yaml.v3"
)

// FleetCatalog lists the vehicle types a solve request may reference.
type FleetCatalog struct {
	Vehicles []domain.VehicleType `yaml:"vehicles"`
}

// DefaultFleetCatalog is used when no catalog file is configured.
func DefaultFleetCatalog() FleetCatalog {
	return FleetCatalog{Vehicles: []domain.VehicleType{
		{Name: "16-seater", Seats: 16},
		{Name: "27-seater", Seats: 27},
	}}
}

// LoadFleetCatalog reads a YAML catalog; an empty path yields the default.
//
//	vehicles:
//	  - name: 16-seater
//	    seats: 16
func LoadFleetCatalog(path string) (FleetCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultFleetCatalog(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return FleetCatalog{}, fmt.Errorf("load fleet catalog: read %q: %w", path, err)
	}

	var fc FleetCatalog
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FleetCatalog{}, fmt.Errorf("load fleet catalog: parse yaml: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return FleetCatalog{}, fmt.Errorf("load fleet catalog: %w", err)
	}
	return fc, nil
}

func (fc FleetCatalog) Validate() error {
	if len(fc.Vehicles) == 0 {
		return errors.New("catalog has no vehicles")
	}
	seen := make(map[string]struct{}, len(fc.Vehicles))
	for i, v := range fc.Vehicles {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("vehicle #%d: name is empty", i+1)
		}
		if v.Seats < 1 {
			return fmt.Errorf("vehicle %q: seats must be positive", v.Name)
		}
		if _, ok := seen[v.Name]; ok {
			return fmt.Errorf("vehicle %q: duplicate name", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}
