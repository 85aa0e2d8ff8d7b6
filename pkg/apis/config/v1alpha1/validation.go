package v1alpha1

import (
	"fmt"

	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/quantity"
)

// ValidateManagerConfiguration validates a defaulted configuration document.
// Every error returned here is a ConfigurationError per the error-handling
// design: fatal at startup, never raised mid-run.
func ValidateManagerConfiguration(obj *ManagerConfiguration) error {
	if obj.ClusterName == "" {
		return fmt.Errorf("clusterName must not be empty")
	}
	if obj.SleepIntervalSeconds < 1 {
		return fmt.Errorf("sleepIntervalSeconds must be >= 1, got %d", obj.SleepIntervalSeconds)
	}
	if obj.DefaultOverSubscription < 0 {
		return fmt.Errorf("defaultOverSubscription must be >= 0, got %v", obj.DefaultOverSubscription)
	}
	if _, err := quantity.ParseCPU(obj.ReservedCPU); err != nil {
		return fmt.Errorf("reservedCpus: %w", err)
	}
	if _, err := quantity.ParseMemory(obj.ReservedMemory); err != nil {
		return fmt.Errorf("reservedMemory: %w", err)
	}
	if len(obj.Sectors) == 0 {
		return fmt.Errorf("at least one sector must be configured")
	}

	for name, sector := range obj.Sectors {
		if err := validateSector(name, sector); err != nil {
			return err
		}
	}
	return nil
}

func validateSector(name string, sector SectorSpec) error {
	if name == "" {
		return fmt.Errorf("sector name must not be empty")
	}
	if _, err := catalog.ParseKind(sector.Kind); err != nil {
		return fmt.Errorf("sector %q: %w", name, err)
	}
	if len(sector.Fleets) == 0 {
		return fmt.Errorf("sector %q: must configure at least one fleet", name)
	}

	seen := make(map[string]bool, len(sector.Fleets))
	for _, fleet := range sector.Fleets {
		size, err := catalog.ParseSize(fleet.Size)
		if err != nil {
			return fmt.Errorf("sector %q: %w", name, err)
		}
		if seen[size.String()] {
			return fmt.Errorf("sector %q: size %q configured more than once", name, fleet.Size)
		}
		seen[size.String()] = true
		if fleet.MinCapacity < 0 {
			return fmt.Errorf("sector %q: size %q: minCapacity must be >= 0, got %d", name, fleet.Size, fleet.MinCapacity)
		}
	}
	return nil
}
