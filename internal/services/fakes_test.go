package services

import (
	"context"
	"sort"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/database/repository"
	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

// In-memory store fakes shared by the service tests.

type fakeCampaignStore struct {
	campaigns map[string]*models.Campaign

	// onGetByID, when set, runs against the stored campaign before each
	// read. Tests use it to flip status mid-pass.
	onGetByID func(campaign *models.Campaign)
}

func newFakeCampaignStore(campaigns ...*models.Campaign) *fakeCampaignStore {
	store := &fakeCampaignStore{campaigns: map[string]*models.Campaign{}}
	for _, c := range campaigns {
		store.campaigns[c.ID] = c
	}
	return store
}

func (s *fakeCampaignStore) GetByID(tenantID, id string) (*models.Campaign, error) {
	campaign, ok := s.campaigns[id]
	if !ok || campaign.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	if s.onGetByID != nil {
		s.onGetByID(campaign)
	}
	copied := *campaign
	return &copied, nil
}

func (s *fakeCampaignStore) MarkLaunched(tenantID, id string) (bool, error) {
	campaign, ok := s.campaigns[id]
	if !ok || campaign.TenantID != tenantID {
		return false, gorm.ErrRecordNotFound
	}
	if campaign.LaunchedAt != nil {
		return false, nil
	}
	now := time.Now()
	campaign.LaunchedAt = &now
	return true, nil
}

func (s *fakeCampaignStore) TransitionStatus(tenantID, id string, from []string, to string) (bool, error) {
	campaign, ok := s.campaigns[id]
	if !ok || campaign.TenantID != tenantID {
		return false, gorm.ErrRecordNotFound
	}
	for _, status := range from {
		if campaign.Status == status {
			campaign.Status = to
			return true, nil
		}
	}
	return false, nil
}

type fakeStepStore struct {
	steps map[string]*models.CampaignStep
}

func newFakeStepStore(steps ...*models.CampaignStep) *fakeStepStore {
	store := &fakeStepStore{steps: map[string]*models.CampaignStep{}}
	for _, step := range steps {
		store.steps[step.ID] = step
	}
	return store
}

func (s *fakeStepStore) Create(step *models.CampaignStep) error {
	if step.ID == "" {
		step.ID = "step-default"
	}
	s.steps[step.ID] = step
	return nil
}

func (s *fakeStepStore) GetByID(tenantID, id string) (*models.CampaignStep, error) {
	step, ok := s.steps[id]
	if !ok || step.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return step, nil
}

func (s *fakeStepStore) ListActiveByCampaign(tenantID, campaignID string) ([]*models.CampaignStep, error) {
	var out []*models.CampaignStep
	for _, step := range s.steps {
		if step.TenantID == tenantID && step.CampaignID == campaignID && step.IsActive {
			out = append(out, step)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

type fakeSegmentStore struct {
	segments map[string]*models.Segment
}

func newFakeSegmentStore(segments ...*models.Segment) *fakeSegmentStore {
	store := &fakeSegmentStore{segments: map[string]*models.Segment{}}
	for _, segment := range segments {
		store.segments[segment.ID] = segment
	}
	return store
}

func (s *fakeSegmentStore) GetByID(tenantID, id string) (*models.Segment, error) {
	segment, ok := s.segments[id]
	if !ok || segment.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return segment, nil
}

// fakeLeadStore pages leads in id order. Rule filtering happens in SQL in
// production, so the fake returns every lead.
type fakeLeadStore struct {
	leads     []*models.Lead
	increment map[string]int
}

func newFakeLeadStore(leads ...*models.Lead) *fakeLeadStore {
	sorted := append([]*models.Lead(nil), leads...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &fakeLeadStore{leads: sorted, increment: map[string]int{}}
}

func (s *fakeLeadStore) FindBySegment(tenantID string, rules *models.SegmentRuleGroup, afterID string, limit int) ([]*models.Lead, error) {
	var out []*models.Lead
	for _, lead := range s.leads {
		if lead.TenantID != tenantID || lead.ID <= afterID {
			continue
		}
		out = append(out, lead)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeLeadStore) IncrementOutbound(tenantID, id string, at time.Time) error {
	s.increment[id]++
	return nil
}

type fakeTemplateStore struct {
	templates map[string]*models.Template
}

func newFakeTemplateStore(templates ...*models.Template) *fakeTemplateStore {
	store := &fakeTemplateStore{templates: map[string]*models.Template{}}
	for _, template := range templates {
		store.templates[template.ID] = template
	}
	return store
}

func (s *fakeTemplateStore) GetByID(tenantID, id string) (*models.Template, error) {
	template, ok := s.templates[id]
	if !ok || template.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return template, nil
}

type dedupKey struct {
	tenantID   string
	campaignID string
	stepKey    string
	leadID     string
	channel    string
}

type fakeMessageStore struct {
	messages map[string]*models.Message
	dedup    map[dedupKey]bool
	inbound  map[string]bool
	outbound map[string]int
}

func newFakeMessageStore(messages ...*models.Message) *fakeMessageStore {
	store := &fakeMessageStore{
		messages: map[string]*models.Message{},
		dedup:    map[dedupKey]bool{},
		inbound:  map[string]bool{},
		outbound: map[string]int{},
	}
	for _, message := range messages {
		store.messages[message.ID] = message
		if message.Direction == models.DirectionOutbound {
			store.dedup[keyOf(message)] = true
		}
	}
	return store
}

func keyOf(m *models.Message) dedupKey {
	return dedupKey{m.TenantID, m.CampaignID, m.StepID, m.LeadID, m.Channel}
}

// Create enforces uniqueness for outbound rows only, like the partial
// index in the schema.
func (s *fakeMessageStore) Create(message *models.Message) error {
	if message.Direction != models.DirectionOutbound {
		s.messages[message.ID] = message
		return nil
	}
	key := keyOf(message)
	if s.dedup[key] {
		return repository.ErrDuplicateKey
	}
	s.dedup[key] = true
	s.messages[message.ID] = message
	return nil
}

func (s *fakeMessageStore) GetByID(tenantID, id string) (*models.Message, error) {
	message, ok := s.messages[id]
	if !ok || message.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *message
	return &copied, nil
}

func (s *fakeMessageStore) Update(message *models.Message) error {
	s.messages[message.ID] = message
	return nil
}

func (s *fakeMessageStore) ExistingLeadIDs(tenantID, campaignID, stepKey, channel string, leadIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range leadIDs {
		key := dedupKey{tenantID, campaignID, stepKey, id, channel}
		if s.dedup[key] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeMessageStore) CountByCampaignAndStatus(tenantID, campaignID, status string) (int64, error) {
	var count int64
	for _, message := range s.messages {
		if message.TenantID == tenantID && message.CampaignID == campaignID && message.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *fakeMessageStore) CountOutboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, id := range leadIDs {
		if count, ok := s.outbound[id]; ok {
			out[id] = count
		}
	}
	return out, nil
}

func (s *fakeMessageStore) LeadIDsWithInboundSince(tenantID string, leadIDs []string, channel string, since time.Time) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range leadIDs {
		if s.inbound[id] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeUnsubscribeStore struct {
	unsubscribed map[string]bool
}

func (s *fakeUnsubscribeStore) ActiveLeadIDs(tenantID string, leadIDs []string, channel string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range leadIDs {
		if s.unsubscribed[id] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	entries []*models.AuditLog
}

func (s *fakeAuditStore) Create(entry *models.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditStore) actions() []string {
	var out []string
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type publishedGeneration struct {
	tenantID   string
	campaignID string
	stepID     *string
	delay      time.Duration
}

type fakePublisher struct {
	generations []publishedGeneration
	dispatches  []string
}

func (p *fakePublisher) PublishGeneration(tenantID, campaignID string, stepID *string, delay time.Duration) error {
	p.generations = append(p.generations, publishedGeneration{tenantID, campaignID, stepID, delay})
	return nil
}

func (p *fakePublisher) PublishDispatch(tenantID, messageID string) error {
	p.dispatches = append(p.dispatches, messageID)
	return nil
}

// fakeDispatcher returns scripted results in call order and falls back to
// accepting everything.
type fakeDispatcher struct {
	results []*DispatchResult
	errs    []error
	calls   []*models.Message
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, message *models.Message) (*DispatchResult, error) {
	i := len(d.calls)
	d.calls = append(d.calls, message)
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.results) {
		return d.results[i], nil
	}
	return &DispatchResult{Accepted: true, Provider: "fake", Status: models.MessageStatusSent}, nil
}
