package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allMilestoneStatuses = []MilestoneStatus{
	MilestoneStatusPending,
	MilestoneStatusFunded,
	MilestoneStatusInProgress,
	MilestoneStatusSubmitted,
	MilestoneStatusApproved,
	MilestoneStatusRevisionRequested,
	MilestoneStatusCompleted,
}

// Полный граф допустимых переходов этапа. Любая пара вне этого множества
// должна отклоняться.
var allowedMilestonePairs = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:           {MilestoneStatusFunded},
	MilestoneStatusFunded:            {MilestoneStatusInProgress},
	MilestoneStatusInProgress:        {MilestoneStatusSubmitted},
	MilestoneStatusSubmitted:         {MilestoneStatusApproved, MilestoneStatusRevisionRequested},
	MilestoneStatusRevisionRequested: {MilestoneStatusSubmitted},
	MilestoneStatusApproved:          {MilestoneStatusCompleted},
	MilestoneStatusCompleted:         {},
}

func TestMilestoneStatus_TransitionGraphClosure(t *testing.T) {
	for _, from := range allMilestoneStatuses {
		expected := allowedMilestonePairs[from]
		for _, to := range allMilestoneStatuses {
			want := false
			for _, a := range expected {
				if a == to {
					want = true
					break
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "переход %s -> %s", from, to)
		}
	}
}

func TestMilestoneStatus_SelfTransitionNotAllowed(t *testing.T) {
	for _, s := range allMilestoneStatuses {
		assert.False(t, s.CanTransitionTo(s), "статус %s", s)
	}
}

func TestMilestoneStatus_UnknownStatus(t *testing.T) {
	unknown := MilestoneStatus("archived")
	assert.False(t, unknown.IsValid())
	assert.False(t, unknown.CanTransitionTo(MilestoneStatusFunded))

	_, err := NewMilestoneStatus("archived")
	assert.Error(t, err)
}

func TestMilestoneStatus_IsFunded(t *testing.T) {
	assert.False(t, MilestoneStatusPending.IsFunded())
	for _, s := range allMilestoneStatuses[1:] {
		assert.True(t, s.IsFunded(), "статус %s", s)
	}
}

func TestMilestoneStatus_IsTerminal(t *testing.T) {
	assert.True(t, MilestoneStatusCompleted.IsTerminal())
	assert.False(t, MilestoneStatusApproved.IsTerminal())
}

func TestProjectStatus_Transitions(t *testing.T) {
	assert.True(t, ProjectStatusInProgress.CanTransitionTo(ProjectStatusCompleted))
	assert.True(t, ProjectStatusInProgress.CanTransitionTo(ProjectStatusCancelled))
	assert.False(t, ProjectStatusCompleted.CanTransitionTo(ProjectStatusInProgress))
	assert.False(t, ProjectStatusCancelled.CanTransitionTo(ProjectStatusCompleted))
	assert.False(t, ProjectStatusOpenForBids.CanTransitionTo(ProjectStatusCompleted))
}

func TestNewProjectStatus(t *testing.T) {
	s, err := NewProjectStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, ProjectStatusInProgress, s)

	_, err = NewProjectStatus("paused")
	assert.Error(t, err)
}
