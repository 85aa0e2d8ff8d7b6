package v1alpha1

const (
	defaultSleepIntervalSeconds = 60
	defaultReservedCPU          = "0"
	defaultReservedMemory       = "0"
)

// SetDefaults_ManagerConfiguration fills in the zero-valued fields of a
// decoded configuration document with their defaults.
func SetDefaults_ManagerConfiguration(obj *ManagerConfiguration) {
	if obj.SleepIntervalSeconds == 0 {
		obj.SleepIntervalSeconds = defaultSleepIntervalSeconds
	}
	if obj.ReservedCPU == "" {
		obj.ReservedCPU = defaultReservedCPU
	}
	if obj.ReservedMemory == "" {
		obj.ReservedMemory = defaultReservedMemory
	}
	// DefaultOverSubscription's zero value (0.0) is already the intended
	// default, so there is nothing to distinguish "unset" from "set to
	// zero" here; the document's own zero is fine.
}
