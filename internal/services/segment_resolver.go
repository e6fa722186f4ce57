package services

import (
	"fmt"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultBatchSize bounds per-pass memory during segment streaming
const DefaultBatchSize = 200

// SegmentResolver compiles a segment's rule tree into a restartable
// recipient stream. Membership is re-evaluated on every Resolve, never
// snapshotted.
type SegmentResolver struct {
	leads LeadStore
}

func NewSegmentResolver(leads LeadStore) *SegmentResolver {
	return &SegmentResolver{leads: leads}
}

// Resolve validates the rule tree and returns a stream over matching leads
// in stable id order. An empty or malformed tree fails closed: the error is
// logged and an empty stream is returned rather than matching everything.
func (r *SegmentResolver) Resolve(tenantID string, segment *models.Segment, batchSize int) *RecipientStream {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	empty := &RecipientStream{done: true}
	if segment == nil {
		logrus.Warn("segment resolution with nil segment, yielding empty stream")
		return empty
	}

	rules, err := segment.ParsedRules()
	if err != nil {
		logrus.Warnf("Segment %s rules unreadable, yielding empty stream: %v", segment.ID, err)
		return empty
	}
	if err := rules.Validate(); err != nil {
		logrus.Warnf("Segment %s rules invalid, yielding empty stream: %v", segment.ID, err)
		return empty
	}

	return &RecipientStream{
		leads:     r.leads,
		tenantID:  tenantID,
		rules:     rules,
		batchSize: batchSize,
	}
}

// RecipientStream pages leads by id cursor so no pass ever materializes the
// full recipient set in memory.
type RecipientStream struct {
	leads     LeadStore
	tenantID  string
	rules     *models.SegmentRuleGroup
	batchSize int
	afterID   string
	done      bool
}

// Next returns the next batch of recipients, or nil when the stream is
// exhausted.
func (s *RecipientStream) Next() ([]*models.Lead, error) {
	if s.done {
		return nil, nil
	}

	batch, err := s.leads.FindBySegment(s.tenantID, s.rules, s.afterID, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch segment batch: %w", err)
	}

	if len(batch) < s.batchSize {
		s.done = true
	}
	if len(batch) == 0 {
		return nil, nil
	}

	s.afterID = batch[len(batch)-1].ID
	return batch, nil
}
