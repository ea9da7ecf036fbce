package workflow

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesoria/disbursement_ops_app/internal/core/domain"
)

func allStagesRequired() domain.ApprovalSettings {
	return domain.ApprovalSettings{
		RequireDeptHeadApproval:  true,
		RequireValidatorApproval: true,
		RequireCashierExecution:  true,
		MaxAmountNoApproval:      decimal.NewFromInt(500000),
	}
}

func TestRequiredStages(t *testing.T) {
	policy := Policy{}

	tests := []struct {
		name     string
		amount   decimal.Decimal
		settings domain.ApprovalSettings
		want     []domain.StageKey
	}{
		{
			name:     "amount above threshold requires all flagged stages",
			amount:   decimal.NewFromInt(1000000),
			settings: allStagesRequired(),
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageDeptHeadValidation,
				domain.StageValidatorApproval,
				domain.StageCashierExecution,
			},
		},
		{
			name:     "amount below threshold skips approval stages but not cashier",
			amount:   decimal.NewFromInt(100000),
			settings: allStagesRequired(),
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageCashierExecution,
			},
		},
		{
			name:     "amount exactly at threshold is auto-approved",
			amount:   decimal.NewFromInt(500000),
			settings: allStagesRequired(),
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageCashierExecution,
			},
		},
		{
			name:     "one unit above threshold requires approval",
			amount:   decimal.NewFromInt(500001),
			settings: allStagesRequired(),
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageDeptHeadValidation,
				domain.StageValidatorApproval,
				domain.StageCashierExecution,
			},
		},
		{
			name:   "dept head flag off drops only that stage",
			amount: decimal.NewFromInt(1000000),
			settings: domain.ApprovalSettings{
				RequireValidatorApproval: true,
				RequireCashierExecution:  true,
				MaxAmountNoApproval:      decimal.NewFromInt(500000),
			},
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageValidatorApproval,
				domain.StageCashierExecution,
			},
		},
		{
			name:     "all flags off leaves submission only",
			amount:   decimal.NewFromInt(1000000),
			settings: domain.ApprovalSettings{MaxAmountNoApproval: decimal.NewFromInt(500000)},
			want:     []domain.StageKey{domain.StageAgentSubmission},
		},
		{
			name:   "cashier requirement is not amount gated",
			amount: decimal.NewFromInt(1),
			settings: domain.ApprovalSettings{
				RequireCashierExecution: true,
				MaxAmountNoApproval:     decimal.NewFromInt(500000),
			},
			want: []domain.StageKey{
				domain.StageAgentSubmission,
				domain.StageCashierExecution,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.RequiredStages(tt.amount, tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiredStages_NegativeThreshold(t *testing.T) {
	policy := Policy{}
	settings := allStagesRequired()
	settings.MaxAmountNoApproval = decimal.NewFromInt(-1)

	_, err := policy.RequiredStages(decimal.NewFromInt(100), settings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyEvaluation))
}

func TestStageRequired(t *testing.T) {
	policy := Policy{}
	settings := allStagesRequired()

	required, err := policy.StageRequired(domain.StageDeptHeadValidation, decimal.NewFromInt(600000), settings)
	require.NoError(t, err)
	assert.True(t, required)

	required, err = policy.StageRequired(domain.StageDeptHeadValidation, decimal.NewFromInt(400000), settings)
	require.NoError(t, err)
	assert.False(t, required)
}
