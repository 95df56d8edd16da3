package register

import "strings"

// RequiredReasons returns the reason keys that must accompany this change
// set: one per changed score field, plus the status rationale when the
// transition enters a gated status. Leaving a gated status, moving between
// ungated statuses, or re-setting the current status never gates.
func RequiredReasons(d *Descriptor, changes ChangeSet, oldStatus, newStatus string) []string {
	var required []string
	for _, sf := range d.Scores {
		if _, changed := changes[sf.Name]; changed {
			required = append(required, sf.ReasonKey)
		}
	}
	if newStatus != oldStatus && d.GatedStatuses[newStatus] {
		required = append(required, ReasonStatus)
	}
	return required
}

// MissingReasons filters required keys down to those absent or blank in the
// supplied reasons.
func MissingReasons(required []string, supplied map[string]string) []string {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(supplied[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
