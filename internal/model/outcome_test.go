package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeKinds(t *testing.T) {
	tests := []struct {
		kind          OutcomeKind
		wantProcessed bool
		wantAdvances  bool
	}{
		{OutcomeApproved, true, true},
		{OutcomeFlagged, true, false},
		{OutcomeSkipped, true, false},
		{OutcomeDryRunPreview, true, false},
		{OutcomeStuck, false, false},
		{OutcomeBatchComplete, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			o := Outcome{Kind: tt.kind}
			assert.Equal(t, tt.wantProcessed, o.CountsAsProcessed())
			assert.Equal(t, tt.wantAdvances, o.AdvancesOnItsOwn())
		})
	}
}
