package services

import (
	"testing"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDisabledRulesStopNobody(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	lead := &models.Lead{ID: "lead-1", Status: models.LeadStatusWon}
	state := EmptySuppressionState()
	state.Unsubscribed["lead-1"] = true
	state.Replied["lead-1"] = true
	state.OutboundCounts["lead-1"] = 100

	stop, reason := evaluator.Evaluate(models.CampaignSettings{}, lead, state)
	assert.False(t, stop)
	assert.Empty(t, reason)
}

func TestEvaluateUnsubscribed(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	settings := models.CampaignSettings{StopOnUnsubscribe: true}
	state := EmptySuppressionState()
	state.Unsubscribed["lead-1"] = true

	stop, reason := evaluator.Evaluate(settings, &models.Lead{ID: "lead-1"}, state)
	assert.True(t, stop)
	assert.Equal(t, StopReasonUnsubscribed, reason)

	// The suppression state is channel-scoped when loaded, so a lead
	// missing from it is not stopped.
	stop, _ = evaluator.Evaluate(settings, &models.Lead{ID: "lead-2"}, state)
	assert.False(t, stop)
}

func TestEvaluateWonLost(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	settings := models.CampaignSettings{StopOnWonLost: true}

	for _, status := range []string{models.LeadStatusWon, models.LeadStatusLost} {
		stop, reason := evaluator.Evaluate(settings, &models.Lead{ID: "lead-1", Status: status}, nil)
		assert.True(t, stop, status)
		assert.Equal(t, StopReasonDealClosed, reason)
	}

	stop, _ := evaluator.Evaluate(settings, &models.Lead{ID: "lead-1", Status: models.LeadStatusQualified}, nil)
	assert.False(t, stop)
}

func TestEvaluateReplied(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	settings := models.CampaignSettings{StopOnReply: true}
	state := EmptySuppressionState()
	state.Replied["lead-1"] = true

	stop, reason := evaluator.Evaluate(settings, &models.Lead{ID: "lead-1"}, state)
	assert.True(t, stop)
	assert.Equal(t, StopReasonReplied, reason)
}

func TestEvaluateFatigueSunset(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	settings := models.CampaignSettings{
		FatigueEnabled:        true,
		FatigueThreshold:      3,
		ReengagementAllowance: 1,
	}
	lead := &models.Lead{ID: "lead-1"}
	state := EmptySuppressionState()

	// Sends up to threshold plus allowance are permitted.
	for count := 0; count < 4; count++ {
		state.OutboundCounts["lead-1"] = count
		stop, _ := evaluator.Evaluate(settings, lead, state)
		assert.False(t, stop, "count=%d", count)
	}

	// The allowance is spent; the stop is terminal.
	state.OutboundCounts["lead-1"] = 4
	stop, reason := evaluator.Evaluate(settings, lead, state)
	assert.True(t, stop)
	assert.Equal(t, StopReasonFatigueSunset, reason)
}

func TestEvaluateRuleOrder(t *testing.T) {
	evaluator := NewStopRuleEvaluator()
	settings := models.CampaignSettings{
		StopOnUnsubscribe: true,
		StopOnWonLost:     true,
	}
	lead := &models.Lead{ID: "lead-1", Status: models.LeadStatusWon}
	state := EmptySuppressionState()
	state.Unsubscribed["lead-1"] = true

	// Opt-out wins over the deal-closed rule when both apply.
	stop, reason := evaluator.Evaluate(settings, lead, state)
	assert.True(t, stop)
	assert.Equal(t, StopReasonUnsubscribed, reason)
}

func TestSuppressionLoaderFetchesOnlyEnabledRules(t *testing.T) {
	messages := newFakeMessageStore()
	messages.inbound["lead-1"] = true
	messages.outbound["lead-1"] = 7
	unsubscribes := &fakeUnsubscribeStore{unsubscribed: map[string]bool{"lead-1": true}}
	loader := NewSuppressionLoader(messages, unsubscribes)

	state, err := loader.Load("tenant-1", models.CampaignSettings{}, []string{"lead-1"}, models.ChannelEmail, time.Now())
	require.NoError(t, err)
	assert.Empty(t, state.Unsubscribed)
	assert.Empty(t, state.Replied)
	assert.Empty(t, state.OutboundCounts)

	settings := models.CampaignSettings{StopOnUnsubscribe: true, StopOnReply: true, FatigueEnabled: true}
	state, err = loader.Load("tenant-1", settings, []string{"lead-1"}, models.ChannelEmail, time.Now())
	require.NoError(t, err)
	assert.True(t, state.Unsubscribed["lead-1"])
	assert.True(t, state.Replied["lead-1"])
	assert.Equal(t, 7, state.OutboundCounts["lead-1"])
}
