package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextState(t *testing.T) {
	tests := []struct {
		name    string
		from    ClearanceState
		trigger LedgerTrigger
		want    ClearanceState
		ok      bool
	}{
		{"intake from initial", StateSubmitReceipt, TriggerIntake, StatePending, true},
		{"intake after rejection", StateRejected, TriggerIntake, StatePending, true},
		{"resubmission keeps pending", StatePending, TriggerIntake, StatePending, true},
		{"intake never downgrades cleared", StateCleared, TriggerIntake, StateCleared, false},
		{"approve pending", StatePending, TriggerApprove, StateCleared, true},
		{"approve after sibling rejection", StateRejected, TriggerApprove, StateCleared, true},
		{"approve without receipt", StateSubmitReceipt, TriggerApprove, StateSubmitReceipt, false},
		{"reject pending", StatePending, TriggerReject, StateRejected, true},
		{"reject after sibling approval", StateCleared, TriggerReject, StateRejected, true},
		{"reject without receipt", StateSubmitReceipt, TriggerReject, StateSubmitReceipt, false},
		{"override from anywhere", StateSubmitReceipt, TriggerOverride, StateCleared, true},
		{"override already cleared", StateCleared, TriggerOverride, StateCleared, true},
		{"rollover resets cleared", StateCleared, TriggerRollover, StateSubmitReceipt, true},
		{"unknown trigger", StatePending, LedgerTrigger("bogus"), StatePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextState(tt.from, tt.trigger)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestAllowedFromReturnsCopy(t *testing.T) {
	from := TriggerOverride.AllowedFrom()
	from[0] = StateRejected
	assert.Equal(t, StateSubmitReceipt, TriggerOverride.AllowedFrom()[0])
	assert.Nil(t, LedgerTrigger("bogus").AllowedFrom())
}

func TestParseClearanceStateLegacyEncodings(t *testing.T) {
	cases := map[string]ClearanceState{
		"Cleared":        StateCleared,
		"cleared":        StateCleared,
		"Not Cleared":    StateRejected,
		"rejected":       StateRejected,
		"Submit Receipt": StateSubmitReceipt,
		"":               StateSubmitReceipt,
		" Pending ":      StatePending,
	}
	for raw, want := range cases {
		got, err := ParseClearanceState(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseClearanceState("archived")
	assert.Error(t, err)
}

func TestClearanceStateScan(t *testing.T) {
	var s ClearanceState
	require.NoError(t, s.Scan([]byte("Cleared")))
	assert.Equal(t, StateCleared, s)
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, StateSubmitReceipt, s)
	assert.Error(t, s.Scan(42))
}

func TestEffectiveStatusDefaultsMissingRow(t *testing.T) {
	virtual := EffectiveStatus(nil, "s1", UnitLibrary)
	assert.Equal(t, StateSubmitReceipt, virtual.Status)
	assert.Equal(t, UnitLibrary, virtual.UnitID)
	assert.True(t, virtual.Status.AllowsUpload())

	row := &ClearanceStatus{StudentID: "s1", UnitID: UnitLibrary, Status: StateCleared}
	assert.Equal(t, StateCleared, EffectiveStatus(row, "s1", UnitLibrary).Status)
	assert.False(t, StateCleared.AllowsUpload())
}

func TestEventFilterMatches(t *testing.T) {
	cleared := DomainEvent{Type: EventUnitCleared, StudentID: "s1", UnitID: UnitBursary}

	assert.True(t, EventFilter{}.Matches(cleared))
	assert.True(t, EventFilter{StudentID: "s1"}.Matches(cleared))
	assert.False(t, EventFilter{StudentID: "s2"}.Matches(cleared))
	assert.False(t, EventFilter{UnitID: UnitLibrary}.Matches(cleared))
	assert.True(t, EventFilter{StudentID: "s2"}.Matches(DomainEvent{Type: EventSemesterRolledOver}))
}

func TestFeeAppliesTo(t *testing.T) {
	law := "Law"
	cs := "Computer Science"
	general := Fee{}
	lawOnly := Fee{Department: &law}

	assert.True(t, general.AppliesTo(nil))
	assert.True(t, lawOnly.AppliesTo(&law))
	assert.False(t, lawOnly.AppliesTo(&cs))
	assert.False(t, lawOnly.AppliesTo(nil))
}
