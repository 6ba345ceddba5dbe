package ir

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError is one invariant violation found by ValidateDatabase.
// Errors are values: ValidateDatabase never short-circuits and always
// reports every violation it finds.
type ValidationError struct {
	Kind    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(kind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidateDatabase checks invariants 1-4 of the data model against db and
// returns every violation found, aggregated with multierr. A nil return
// means db is valid.
func ValidateDatabase(db *DiagDatabase) error {
	var errs error

	if len(db.Variants) > 0 && db.EcuName == "" {
		errs = multierr.Append(errs, newValidationError("EmptyEcuName", "empty ECU name with non-empty variants"))
	}

	for _, v := range db.Variants {
		errs = multierr.Append(errs, validateDiagLayer(&v.DiagLayer))
	}
	for _, fg := range db.FunctionalGroups {
		errs = multierr.Append(errs, validateDiagLayer(&fg.DiagLayer))
	}

	errs = multierr.Append(errs, validateDtcs(db.Dtcs))

	return errs
}

func validateDiagLayer(layer *DiagLayer) error {
	var errs error

	seen := make(map[string]bool, len(layer.DiagServices))
	for _, svc := range layer.DiagServices {
		name := svc.DiagComm.ShortName
		if name == "" {
			errs = multierr.Append(errs, newValidationError("EmptyServiceName",
				"layer %q: empty service name", layer.ShortName))
			continue
		}
		if seen[name] {
			errs = multierr.Append(errs, newValidationError("DuplicateServiceName",
				"layer %q: duplicate service name %q", layer.ShortName, name))
			continue
		}
		seen[name] = true
	}

	for _, sc := range layer.StateCharts {
		if len(sc.States) == 0 {
			errs = multierr.Append(errs, newValidationError("EmptyStateChart",
				"layer %q: state chart %q has no states", layer.ShortName, sc.ShortName))
		}
	}

	return errs
}

func validateDtcs(dtcs []Dtc) error {
	var errs error
	seen := make(map[uint32]string, len(dtcs))
	for _, dtc := range dtcs {
		if prev, ok := seen[dtc.TroubleCode]; ok {
			errs = multierr.Append(errs, newValidationError("DuplicateDtc",
				"duplicate DTC trouble code 0x%06X shared by %q and %q", dtc.TroubleCode, prev, dtc.ShortName))
			continue
		}
		seen[dtc.TroubleCode] = dtc.ShortName
	}
	return errs
}
