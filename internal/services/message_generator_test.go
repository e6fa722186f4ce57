package services

import (
	"context"
	"testing"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFixture struct {
	campaigns    *fakeCampaignStore
	steps        *fakeStepStore
	segments     *fakeSegmentStore
	templates    *fakeTemplateStore
	leads        *fakeLeadStore
	messages     *fakeMessageStore
	unsubscribes *fakeUnsubscribeStore
	publisher    *fakePublisher
	audit        *fakeAuditStore
	generator    *MessageGenerator
}

func newGeneratorFixture(campaign *models.Campaign, leads ...*models.Lead) *generatorFixture {
	f := &generatorFixture{
		campaigns:    newFakeCampaignStore(campaign),
		steps:        newFakeStepStore(),
		segments:     newFakeSegmentStore(&models.Segment{ID: "seg-1", TenantID: "tenant-1", Rules: validRules()}),
		templates:    newFakeTemplateStore(&models.Template{ID: "tpl-1", TenantID: "tenant-1", Channel: models.ChannelEmail, Subject: "Hi {first_name}", Body: "Hello {first_name} from {company}"}),
		leads:        newFakeLeadStore(leads...),
		messages:     newFakeMessageStore(),
		unsubscribes: &fakeUnsubscribeStore{unsubscribed: map[string]bool{}},
		publisher:    &fakePublisher{},
		audit:        &fakeAuditStore{},
	}
	f.generator = NewMessageGenerator(
		f.campaigns, f.steps, f.segments, f.templates, f.leads, f.messages,
		f.unsubscribes, NewPlaceholderRenderer(), f.publisher, f.audit, 2)
	return f
}

func emailCampaign() *models.Campaign {
	segmentID := "seg-1"
	templateID := "tpl-1"
	return &models.Campaign{
		ID:         "camp-1",
		TenantID:   "tenant-1",
		Type:       models.CampaignTypeBroadcast,
		Status:     models.CampaignStatusDraft,
		Channel:    models.ChannelEmail,
		SegmentID:  &segmentID,
		TemplateID: &templateID,
		Settings:   models.JSON{"stop_on_unsubscribe": true},
	}
}

func emailLead(id, email, firstName string) *models.Lead {
	return &models.Lead{ID: id, TenantID: "tenant-1", Email: email, FirstName: firstName, Company: "Acme", Status: models.LeadStatusNew}
}

func TestGenerateCreatesAndSkips(t *testing.T) {
	// Five candidates: one unsubscribed, one with no usable destination,
	// three eligible.
	f := newGeneratorFixture(emailCampaign(),
		emailLead("lead-1", "a@acme.test", "Ann"),
		emailLead("lead-2", "b@acme.test", "Bob"),
		emailLead("lead-3", "", ""),
		emailLead("lead-4", "d@acme.test", "Dee"),
		emailLead("lead-5", "e@acme.test", "Eve"),
	)
	f.unsubscribes.unsubscribed["lead-2"] = true

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 2, skipped)

	// Every created message got a dispatch job and a fatigue bump.
	assert.Len(t, f.publisher.dispatches, 3)
	assert.Equal(t, 1, f.leads.increment["lead-1"])
	assert.Equal(t, 0, f.leads.increment["lead-2"])

	// Rendering resolved lead attributes.
	for _, message := range f.messages.messages {
		assert.NotContains(t, message.Body, "{first_name}")
		assert.Contains(t, message.Body, "Acme")
		assert.Equal(t, models.MessageStatusQueued, message.Status)
	}

	// The campaign moved to running.
	assert.Equal(t, models.CampaignStatusRunning, f.campaigns.campaigns["camp-1"].Status)
}

func TestGenerateRerunIsIdempotent(t *testing.T) {
	f := newGeneratorFixture(emailCampaign(),
		emailLead("lead-1", "a@acme.test", "Ann"),
		emailLead("lead-2", "b@acme.test", "Bob"),
	)

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)

	created, skipped, err = f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)
	assert.Len(t, f.messages.messages, 2)
}

func TestInboundRepliesBypassOutboundDedup(t *testing.T) {
	// Dedup holds outbound rows only. A lead replying several times on
	// the same campaign and channel must ingest every reply, the replied
	// stop rule reads them.
	f := newGeneratorFixture(emailCampaign(), emailLead("lead-1", "a@acme.test", "Ann"))

	created, _, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	reply := func(id string) *models.Message {
		return &models.Message{
			ID: id, TenantID: "tenant-1", CampaignID: "camp-1",
			LeadID: "lead-1", Channel: models.ChannelEmail,
			Direction: models.DirectionInbound, Body: "interested, call me",
		}
	}
	require.NoError(t, f.messages.Create(reply("in-1")))
	require.NoError(t, f.messages.Create(reply("in-2")))
	assert.Len(t, f.messages.messages, 3)

	// The outbound key is still taken.
	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, skipped)
}

func TestGeneratePerStepDedupIsIndependent(t *testing.T) {
	campaign := emailCampaign()
	campaign.Type = models.CampaignTypeDrip
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))
	f.steps.Create(&models.CampaignStep{ID: "step-1", TenantID: "tenant-1", CampaignID: "camp-1", Channel: models.ChannelEmail, IsActive: true})
	f.steps.Create(&models.CampaignStep{ID: "step-2", TenantID: "tenant-1", CampaignID: "camp-1", Channel: models.ChannelEmail, IsActive: true})

	step1, step2 := "step-1", "step-2"
	created, _, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", &step1)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, _, err = f.generator.Generate(context.Background(), "tenant-1", "camp-1", &step2)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Re-running a step stays deduplicated.
	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", &step1)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, skipped)
}

func TestGenerateTerminalCampaignIsRecordedNoop(t *testing.T) {
	campaign := emailCampaign()
	campaign.Status = models.CampaignStatusPaused
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, skipped)
	assert.Empty(t, f.messages.messages)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "generation_pass", f.audit.entries[0].Action)
}

func TestGenerateWithoutTemplateIsRecordedNoop(t *testing.T) {
	campaign := emailCampaign()
	campaign.TemplateID = nil
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, skipped)
	assert.Empty(t, f.messages.messages)
	assert.Len(t, f.audit.entries, 1)
}

func TestGenerateWithoutSegmentIsRecordedNoop(t *testing.T) {
	campaign := emailCampaign()
	campaign.SegmentID = nil
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, skipped)
	assert.Len(t, f.audit.entries, 1)
}

func TestGeneratePauseStopsAtBatchBoundary(t *testing.T) {
	// Four eligible leads with batch size two make two batches. The
	// campaign is paused while the first batch is in flight: the batch
	// finishes, the second one never starts.
	f := newGeneratorFixture(emailCampaign(),
		emailLead("lead-1", "a@acme.test", "Ann"),
		emailLead("lead-2", "b@acme.test", "Bob"),
		emailLead("lead-3", "c@acme.test", "Cal"),
		emailLead("lead-4", "d@acme.test", "Dee"),
	)
	reads := 0
	f.campaigns.onGetByID = func(campaign *models.Campaign) {
		reads++
		// Read 1 loads the campaign, read 2 is the boundary check before
		// the first batch, read 3 the one before the second.
		if reads == 3 {
			campaign.Status = models.CampaignStatusPaused
		}
	}

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)
	assert.Len(t, f.messages.messages, 2)
	assert.Len(t, f.publisher.dispatches, 2)
	assert.Equal(t, models.CampaignStatusPaused, f.campaigns.campaigns["camp-1"].Status)
}

func TestGenerateForeignStepIsRecordedNoop(t *testing.T) {
	campaign := emailCampaign()
	campaign.Type = models.CampaignTypeDrip
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))
	f.steps.Create(&models.CampaignStep{ID: "step-x", TenantID: "tenant-1", CampaignID: "camp-other", Channel: models.ChannelEmail, IsActive: true})

	stepID := "step-x"
	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", &stepID)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, skipped)
	assert.Empty(t, f.messages.messages)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "generation_pass", f.audit.entries[0].Action)
}

func TestGenerateInactiveStepIsRecordedNoop(t *testing.T) {
	campaign := emailCampaign()
	campaign.Type = models.CampaignTypeDrip
	f := newGeneratorFixture(campaign, emailLead("lead-1", "a@acme.test", "Ann"))
	f.steps.Create(&models.CampaignStep{ID: "step-1", TenantID: "tenant-1", CampaignID: "camp-1", IsActive: false})

	stepID := "step-1"
	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", &stepID)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Zero(t, skipped)
	assert.Empty(t, f.messages.messages)
}

func TestGenerateSmsValidatesPhoneNumbers(t *testing.T) {
	campaign := emailCampaign()
	campaign.Channel = models.ChannelSMS
	f := newGeneratorFixture(campaign,
		&models.Lead{ID: "lead-1", TenantID: "tenant-1", Phone: "+14155552671", Country: "US", Status: models.LeadStatusNew},
		&models.Lead{ID: "lead-2", TenantID: "tenant-1", Phone: "12345", Country: "US", Status: models.LeadStatusNew},
	)
	f.templates.templates["tpl-1"].Channel = models.ChannelSMS

	created, skipped, err := f.generator.Generate(context.Background(), "tenant-1", "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, skipped)

	for _, message := range f.messages.messages {
		assert.Equal(t, "+14155552671", message.Destination)
	}
}
