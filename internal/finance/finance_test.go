package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMI_StandardLoan(t *testing.T) {
	// 10L at 9.5% over 60 months, the canonical example
	emi := EMI(1000000, 9.5, 60)
	assert.InDelta(t, 21002.0, emi, 5.0)
}

func TestEMI_ZeroRate(t *testing.T) {
	assert.Equal(t, 10000.0, EMI(120000, 0, 12))
}

func TestNPARatio(t *testing.T) {
	assert.Equal(t, 10.0, NPARatio(5000000, 50000000))
	assert.Equal(t, 0.0, NPARatio(5000000, 0))
}

func TestDefaultRate(t *testing.T) {
	assert.Equal(t, 10.0, DefaultRate(5, 50))
	assert.Equal(t, 0.0, DefaultRate(5, 0))
}

func TestLTV(t *testing.T) {
	assert.Equal(t, 80.0, LTV(800000, 1000000))
	// No collateral = full risk exposure
	assert.Equal(t, 100.0, LTV(800000, 0))
}

func TestDTI(t *testing.T) {
	assert.Equal(t, 30.0, DTI(30000, 100000))
	assert.Equal(t, 100.0, DTI(30000, 0))
}

func TestRiskWeightedAssets(t *testing.T) {
	assert.Equal(t, 750000.0, RiskWeightedAssets(1000000, 0.75))
}

func TestProvisionCoverageRatio(t *testing.T) {
	assert.Equal(t, 80.0, ProvisionCoverageRatio(4000000, 5000000))
	assert.Equal(t, 100.0, ProvisionCoverageRatio(0, 0))
}

func TestAmortizationSchedule_ClosesToZero(t *testing.T) {
	schedule := AmortizationSchedule(1000000, 9.5, 12)
	require.Len(t, schedule, 12)

	assert.Equal(t, 1, schedule[0].Month)
	assert.Equal(t, 0.0, schedule[len(schedule)-1].Balance)

	// Interest declines month over month on a fixed-rate amortizing loan
	for i := 1; i < len(schedule); i++ {
		assert.LessOrEqual(t, schedule[i].Interest, schedule[i-1].Interest,
			"interest must decrease over the tenure")
	}

	// Each row splits EMI into principal + interest
	for _, row := range schedule[:len(schedule)-1] {
		assert.InDelta(t, row.EMI, row.Principal+row.Interest, 0.02)
	}
}

func TestAmortizationSchedule_TotalPrincipal(t *testing.T) {
	principal := 500000.0
	schedule := AmortizationSchedule(principal, 12, 24)

	var repaid float64
	for _, row := range schedule {
		repaid += row.Principal
	}
	assert.True(t, math.Abs(repaid-principal) < 1.0,
		"total principal repaid %.2f should equal %.2f", repaid, principal)
}
