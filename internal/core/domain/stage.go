package domain

// StageKey identifies one of the four fixed workflow stages.
type StageKey string

const (
	StageAgentSubmission    StageKey = "AGENT_SUBMISSION"
	StageDeptHeadValidation StageKey = "DEPT_HEAD_VALIDATION"
	StageValidatorApproval  StageKey = "VALIDATOR_APPROVAL"
	StageCashierExecution   StageKey = "CASHIER_EXECUTION"
)

// stageOrder fixes the pipeline ordering: submission < dept head < validator < cashier.
var stageOrder = map[StageKey]int{
	StageAgentSubmission:    0,
	StageDeptHeadValidation: 1,
	StageValidatorApproval:  2,
	StageCashierExecution:   3,
}

// OrderedStages lists every stage in pipeline order.
var OrderedStages = []StageKey{
	StageAgentSubmission,
	StageDeptHeadValidation,
	StageValidatorApproval,
	StageCashierExecution,
}

// Order returns the position of the stage in the pipeline. Unknown stages
// order last so comparisons against them never win a tie-break.
func (k StageKey) Order() int {
	if o, ok := stageOrder[k]; ok {
		return o
	}
	return len(stageOrder)
}

// IsValid returns true when the key names one of the four fixed stages.
func (k StageKey) IsValid() bool {
	_, ok := stageOrder[k]
	return ok
}

func (k StageKey) String() string {
	return string(k)
}
