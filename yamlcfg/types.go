package yamlcfg

import "gopkg.in/yaml.v3"

// SchemaID is the required value of a document's top-level "schema" field.
const SchemaID = "opensovd.cda.diagdesc/v1"

// Document is the root of a YAML diagnostic description.
type Document struct {
	Schema         string                   `yaml:"schema"`
	Meta           map[string]any           `yaml:"meta"`
	Ecu            EcuConfig                `yaml:"ecu"`
	Sessions       map[string]SessionConfig `yaml:"sessions"`
	Security       map[string]SecurityConfig `yaml:"security,omitempty"`
	AccessPatterns map[string]AccessPattern `yaml:"access_patterns"`
	Services       map[string]RawService    `yaml:"services"`
	Dids           map[string]DidConfig     `yaml:"dids,omitempty"`
	Routines       map[string]RoutineConfig `yaml:"routines,omitempty"`
	Dtcs           []DtcConfig              `yaml:"dtcs,omitempty"`
	Features       FeatureToggles           `yaml:"features,omitempty"`
	StateModel     *StateModelConfig        `yaml:"state_model,omitempty"`
	Variants       map[string]VariantConfig `yaml:"variants,omitempty"`
}

// EcuConfig names the ECU and, optionally, its base variant's short-name
// (defaults to "<name>_Base" when omitted).
type EcuConfig struct {
	Name        string `yaml:"name"`
	BaseVariant string `yaml:"base_variant,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Revision    string `yaml:"revision,omitempty"`
}

// SessionConfig declares one diagnostic session by its numeric ID.
type SessionConfig struct {
	Id int `yaml:"id"`
}

// SecurityConfig declares one security level and the seed/key exchange
// that unlocks it.
type SecurityConfig struct {
	Level           int      `yaml:"level"`
	SeedRequest     int      `yaml:"seed_request"`
	KeySend         int      `yaml:"key_send"`
	SeedSize        int      `yaml:"seed_size"`
	KeySize         int      `yaml:"key_size"`
	Algorithm       string   `yaml:"algorithm"`
	MaxAttempts     int      `yaml:"max_attempts"`
	DelayOnFailMs   int      `yaml:"delay_on_fail_ms"`
	AllowedSessions []string `yaml:"allowed_sessions,omitempty"`
}

// Ref is either the sentinel string ("any" or "none") or an explicit list
// of referenced names. It marshals back to whichever shape it was read
// from.
type Ref struct {
	Sentinel string
	Names    []string
}

// UnmarshalYAML accepts either a bare scalar sentinel or a sequence of
// names.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Sentinel = node.Value
		r.Names = nil
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	r.Names = list
	r.Sentinel = ""
	return nil
}

// MarshalYAML round-trips a Ref back to its original scalar-or-list shape.
func (r Ref) MarshalYAML() (any, error) {
	if r.Sentinel != "" {
		return r.Sentinel, nil
	}
	return r.Names, nil
}

// IsAny reports whether this Ref is the "any"/"none" sentinel, in which
// case reference checks are short-circuited.
func (r Ref) IsAny() bool {
	return r.Sentinel != ""
}

// AccessPattern gates a group of services behind a session/security/
// authentication combination.
type AccessPattern struct {
	Sessions       Ref    `yaml:"sessions"`
	Security       Ref    `yaml:"security"`
	Authentication string `yaml:"authentication,omitempty"`
}

// RawService declares a diagnostic service directly, for cases not
// covered by the DID/routine/security generators.
type RawService struct {
	Semantic     string `yaml:"semantic,omitempty"`
	RequestSid   int    `yaml:"request_sid,omitempty"`
	AccessPattern string `yaml:"access_pattern,omitempty"`
}

// DopConfig describes how a DID's bytes decode to a physical value.
type DopConfig struct {
	BaseDataType string `yaml:"base_data_type"`
	BitLength    int    `yaml:"bit_length"`
}

// DidConfig declares one data identifier.
type DidConfig struct {
	Id       int       `yaml:"id"`
	Session  string    `yaml:"session,omitempty"`
	Writable bool      `yaml:"writable,omitempty"`
	Dop      DopConfig `yaml:"dop"`
}

// RoutineConfig declares one diagnostic routine.
type RoutineConfig struct {
	Id int `yaml:"id"`
}

// DtcConfig declares one diagnostic trouble code.
type DtcConfig struct {
	Code     uint32 `yaml:"code"`
	Text     string `yaml:"text,omitempty"`
	Severity string `yaml:"severity,omitempty"`
}

// FeatureToggles enables or disables optional generated service groups.
type FeatureToggles struct {
	SecurityAccess bool `yaml:"securityAccess"`
}

// StateModelConfig declares session-chart transitions beyond the implicit
// all-sessions-defined chart.
type StateModelConfig struct {
	SessionTransitions map[string][]string `yaml:"session_transitions,omitempty"`
}

// VariantConfig declares one derived ECU variant.
type VariantConfig struct {
	LongName string `yaml:"long_name,omitempty"`
}
