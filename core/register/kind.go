package register

import "saker-rro/core/store"

type Kind string

const (
	KindRisk        Kind = "risk"
	KindIssue       Kind = "issue"
	KindOpportunity Kind = "opportunity"
)

// Reason keys accepted alongside a mutation request.
const (
	ReasonLikelihood  = "likelihoodChangeReason"
	ReasonConsequence = "consequenceChangeReason"
	ReasonImpact      = "impactChangeReason"
	ReasonStatus      = "statusChangeRationale"
)

// Tracked non-score field names as they appear in diffs and audit entries.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldOwnerName   = "ownerName"
	FieldCategory    = "categoryId"
	FieldStatus      = "status"
	FieldLikelihood  = "likelihood"
	FieldConsequence = "consequence"
	FieldImpact      = "impact"
	FieldStepOrder   = "stepOrder"
)

// ScoreField binds one ordinal score column to the reason key that gates
// changing it.
type ScoreField struct {
	Name      string
	ReasonKey string
	Get       func(*store.Entity) int
	Set       func(*store.Entity, int)
}

// Descriptor is the per-kind parameterization of the shared versioning,
// diffing and rationale machinery: which scores exist, which statuses gate
// on a rationale, and which rating table applies.
type Descriptor struct {
	Kind          Kind
	Path          string // URL segment, e.g. "risks"
	StepNoun      string // mitigation | resolution | action-plan
	Statuses      []string
	DefaultStatus string
	GatedStatuses map[string]bool
	Scores        []ScoreField
	Table         *RatingTable

	// FixedLikelihood pins the likelihood column for kinds that do not
	// score it, so stored rows and snapshots match the classification
	// input. Zero means the column is caller-supplied.
	FixedLikelihood int

	// pair selects the (a,b) inputs for Table.Classify from the three
	// score columns.
	pair func(likelihood, consequence, impact int) (int, int)
}

func (d *Descriptor) StatusValid(status string) bool {
	for _, s := range d.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// RatingOf classifies raw score columns; callers pass whatever triple they
// have (entity columns, snapshot fields, step expected or actual scores).
func (d *Descriptor) RatingOf(likelihood, consequence, impact int) Rating {
	a, b := d.pair(likelihood, consequence, impact)
	return d.Table.Classify(a, b)
}

func (d *Descriptor) EntityRating(e *store.Entity) Rating {
	return d.RatingOf(e.Likelihood, e.Consequence, e.Impact)
}

// stepScoreNames lists the score dimensions a step carries for this kind,
// mirroring the entity's score columns.
func (d *Descriptor) stepScoreNames() []string {
	names := make([]string, 0, len(d.Scores))
	for _, sf := range d.Scores {
		names = append(names, sf.Name)
	}
	return names
}

var riskDescriptor = &Descriptor{
	Kind:          KindRisk,
	Path:          "risks",
	StepNoun:      "mitigation",
	Statuses:      []string{"open", "closed", "accepted", "realized"},
	DefaultStatus: "open",
	GatedStatuses: map[string]bool{"closed": true, "accepted": true, "realized": true},
	Scores: []ScoreField{
		{Name: FieldLikelihood, ReasonKey: ReasonLikelihood,
			Get: func(e *store.Entity) int { return e.Likelihood },
			Set: func(e *store.Entity, v int) { e.Likelihood = v }},
		{Name: FieldConsequence, ReasonKey: ReasonConsequence,
			Get: func(e *store.Entity) int { return e.Consequence },
			Set: func(e *store.Entity, v int) { e.Consequence = v }},
	},
	Table: RiskTable,
	pair:  func(likelihood, consequence, _ int) (int, int) { return likelihood, consequence },
}

// Issues have no gated statuses; only risks and opportunities require a
// rationale on exit-style transitions.
var issueDescriptor = &Descriptor{
	Kind:          KindIssue,
	Path:          "issues",
	StepNoun:      "resolution",
	Statuses:      []string{"open", "ignore", "control"},
	DefaultStatus: "open",
	GatedStatuses: map[string]bool{},
	Scores: []ScoreField{
		{Name: FieldConsequence, ReasonKey: ReasonConsequence,
			Get: func(e *store.Entity) int { return e.Consequence },
			Set: func(e *store.Entity, v int) { e.Consequence = v }},
	},
	Table:           IssueTable,
	FixedLikelihood: 1,
	pair:            func(_, consequence, _ int) (int, int) { return 1, consequence },
}

var opportunityDescriptor = &Descriptor{
	Kind:          KindOpportunity,
	Path:          "opportunities",
	StepNoun:      "action-plan",
	Statuses:      []string{"pursue_now", "defer", "reevaluate", "reject"},
	DefaultStatus: "pursue_now",
	GatedStatuses: map[string]bool{"defer": true, "reevaluate": true, "reject": true},
	Scores: []ScoreField{
		{Name: FieldLikelihood, ReasonKey: ReasonLikelihood,
			Get: func(e *store.Entity) int { return e.Likelihood },
			Set: func(e *store.Entity, v int) { e.Likelihood = v }},
		{Name: FieldImpact, ReasonKey: ReasonImpact,
			Get: func(e *store.Entity) int { return e.Impact },
			Set: func(e *store.Entity, v int) { e.Impact = v }},
	},
	Table: OpportunityTable,
	pair:  func(likelihood, _, impact int) (int, int) { return likelihood, impact },
}

var descriptors = map[Kind]*Descriptor{
	KindRisk:        riskDescriptor,
	KindIssue:       issueDescriptor,
	KindOpportunity: opportunityDescriptor,
}

func DescriptorFor(kind Kind) (*Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// DescriptorForPath resolves a URL segment ("risks", "issues",
// "opportunities") to its descriptor.
func DescriptorForPath(segment string) (*Descriptor, bool) {
	for _, d := range descriptors {
		if d.Path == segment {
			return d, true
		}
	}
	return nil, false
}

func Kinds() []*Descriptor {
	return []*Descriptor{riskDescriptor, issueDescriptor, opportunityDescriptor}
}
