package ir

// FilterByAudience removes every DiagService and SingleEcuJob whose audience
// excludes target, from every Variant and FunctionalGroup in db. Entities
// with no Audience are always kept. Running it twice with the same target
// is equivalent to running it once: the predicate is a pure function of
// each entity's own Audience field, so a second pass discards nothing new.
func FilterByAudience(db *DiagDatabase, target string) {
	for i := range db.Variants {
		filterDiagLayer(&db.Variants[i].DiagLayer, target)
	}
	for i := range db.FunctionalGroups {
		filterDiagLayer(&db.FunctionalGroups[i].DiagLayer, target)
	}
}

func filterDiagLayer(layer *DiagLayer, target string) {
	kept := layer.DiagServices[:0]
	for _, svc := range layer.DiagServices {
		if isVisible(svc.DiagComm.Audience, target) {
			kept = append(kept, svc)
		}
	}
	layer.DiagServices = kept

	keptJobs := layer.SingleEcuJobs[:0]
	for _, job := range layer.SingleEcuJobs {
		if isVisible(job.DiagComm.Audience, target) {
			keptJobs = append(keptJobs, job)
		}
	}
	layer.SingleEcuJobs = keptJobs
}

func isVisible(aud *Audience, target string) bool {
	if aud == nil {
		return true
	}
	if len(aud.EnabledAudiences) > 0 {
		found := false
		for _, a := range aud.EnabledAudiences {
			if a.ShortName == target {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, a := range aud.DisabledAudiences {
		if a.ShortName == target {
			return false
		}
	}
	return true
}
