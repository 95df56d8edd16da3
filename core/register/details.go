package register

import (
	"encoding/json"
	"fmt"

	"saker-rro/core/store"
)

// Audit details are shaped by the action; one struct per action instead of
// an optional-everything blob.

type CreatedDetails struct {
	StepPosition *int `json:"stepPosition,omitempty"`
}

type UpdatedDetails struct {
	ChangedFields []string          `json:"changedFields,omitempty"`
	Changes       ChangeSet         `json:"changes,omitempty"`
	Reasons       map[string]string `json:"reasons,omitempty"`
	StepPosition  *int              `json:"stepPosition,omitempty"`
}

type DeletedDetails struct {
	StepPosition *int `json:"stepPosition,omitempty"`
}

func marshalDetails(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return raw, nil
}

// DecodeDetails unmarshals an audit record's payload into its action shape.
func DecodeDetails(rec *store.AuditRecord) (any, error) {
	switch rec.Action {
	case store.AuditActionCreated:
		var d CreatedDetails
		err := json.Unmarshal(orEmpty(rec.Details), &d)
		return d, err
	case store.AuditActionUpdated:
		var d UpdatedDetails
		err := json.Unmarshal(orEmpty(rec.Details), &d)
		return d, err
	case store.AuditActionDeleted:
		var d DeletedDetails
		err := json.Unmarshal(orEmpty(rec.Details), &d)
		return d, err
	default:
		return nil, fmt.Errorf("unknown audit action %q", rec.Action)
	}
}

func orEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
