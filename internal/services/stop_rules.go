package services

import (
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
)

// Stop reasons
const (
	StopReasonUnsubscribed  = "unsubscribed"
	StopReasonDealClosed    = "deal_closed"
	StopReasonReplied       = "replied"
	StopReasonFatigueSunset = "fatigue_sunset"
)

// SuppressionState is the batch-prefetched history a stop-rule evaluation
// reads from. Building it for a whole batch keeps the evaluator free of
// per-recipient queries.
type SuppressionState struct {
	Unsubscribed   map[string]bool
	Replied        map[string]bool
	OutboundCounts map[string]int
}

// EmptySuppressionState returns a state that stops nobody
func EmptySuppressionState() *SuppressionState {
	return &SuppressionState{
		Unsubscribed:   map[string]bool{},
		Replied:        map[string]bool{},
		OutboundCounts: map[string]int{},
	}
}

// StopRuleEvaluator decides whether a lead may receive a campaign message
// on a channel. Pure: no I/O beyond the prefetched state.
type StopRuleEvaluator struct{}

func NewStopRuleEvaluator() *StopRuleEvaluator {
	return &StopRuleEvaluator{}
}

// Evaluate applies the enabled stop rules in order. A disabled rule is
// skipped and never denies.
func (e *StopRuleEvaluator) Evaluate(settings models.CampaignSettings, lead *models.Lead, state *SuppressionState) (bool, string) {
	if state == nil {
		state = EmptySuppressionState()
	}

	if settings.StopOnUnsubscribe && state.Unsubscribed[lead.ID] {
		return true, StopReasonUnsubscribed
	}

	if settings.StopOnWonLost && lead.DealClosed() {
		return true, StopReasonDealClosed
	}

	if settings.StopOnReply && state.Replied[lead.ID] {
		return true, StopReasonReplied
	}

	if settings.FatigueEnabled {
		count := state.OutboundCounts[lead.ID]
		// Sends past the threshold draw from the re-engagement allowance;
		// once that is spent the stop is terminal.
		if count >= settings.FatigueThreshold+settings.ReengagementAllowance {
			return true, StopReasonFatigueSunset
		}
	}

	return false, ""
}

// SuppressionLoader prefetches suppression state for a whole batch of leads
// with three batched queries.
type SuppressionLoader struct {
	messages     MessageStore
	unsubscribes UnsubscribeStore
}

func NewSuppressionLoader(messages MessageStore, unsubscribes UnsubscribeStore) *SuppressionLoader {
	return &SuppressionLoader{messages: messages, unsubscribes: unsubscribes}
}

// Load builds the SuppressionState for leadIDs on a channel; only the data
// the enabled rules need is fetched.
func (l *SuppressionLoader) Load(tenantID string, settings models.CampaignSettings, leadIDs []string, channel string, since time.Time) (*SuppressionState, error) {
	state := EmptySuppressionState()

	if settings.StopOnUnsubscribe {
		unsubscribed, err := l.unsubscribes.ActiveLeadIDs(tenantID, leadIDs, channel)
		if err != nil {
			return nil, err
		}
		state.Unsubscribed = unsubscribed
	}

	if settings.StopOnReply {
		replied, err := l.messages.LeadIDsWithInboundSince(tenantID, leadIDs, channel, since)
		if err != nil {
			return nil, err
		}
		state.Replied = replied
	}

	if settings.FatigueEnabled {
		counts, err := l.messages.CountOutboundSince(tenantID, leadIDs, channel, since)
		if err != nil {
			return nil, err
		}
		state.OutboundCounts = counts
	}

	return state, nil
}
