package yamlcfg

import "sort"

// Map iteration order in Go is randomised; every place that walks a
// document map sorts its keys first so parsing and generation are
// deterministic and reproducible across runs.

func sortedKeys(m map[string]SessionConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSecurityKeys(m map[string]SecurityConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAccessPatternKeys(m map[string]AccessPattern) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedDidKeys(m map[string]DidConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRoutineKeys(m map[string]RoutineConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedServiceKeys(m map[string]RawService) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedVariantKeys(m map[string]VariantConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringSliceKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sessionNamesByID orders session names ascending by their declared ID,
// breaking ties by name for determinism.
func sessionNamesByID(m map[string]SessionConfig) []string {
	names := sortedKeys(m)
	sort.SliceStable(names, func(i, j int) bool {
		return m[names[i]].Id < m[names[j]].Id
	})
	return names
}

// securityNamesByLevel orders security level names ascending by their
// declared level, breaking ties by name for determinism.
func securityNamesByLevel(m map[string]SecurityConfig) []string {
	names := sortedSecurityKeys(m)
	sort.SliceStable(names, func(i, j int) bool {
		return m[names[i]].Level < m[names[j]].Level
	})
	return names
}
