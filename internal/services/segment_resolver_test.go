package services

import (
	"fmt"
	"testing"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRules() models.JSON {
	return models.JSON{
		"match": "and",
		"rules": []interface{}{
			map[string]interface{}{"field": "status", "operator": "eq", "value": "new"},
		},
	}
}

func TestResolveStreamsInBatches(t *testing.T) {
	var leads []*models.Lead
	for i := 0; i < 5; i++ {
		leads = append(leads, &models.Lead{ID: fmt.Sprintf("lead-%d", i), TenantID: "tenant-1"})
	}
	resolver := NewSegmentResolver(newFakeLeadStore(leads...))
	segment := &models.Segment{ID: "seg-1", TenantID: "tenant-1", Rules: validRules()}

	stream := resolver.Resolve("tenant-1", segment, 2)

	var seen []string
	var batches int
	for {
		batch, err := stream.Next()
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		batches++
		for _, lead := range batch {
			seen = append(seen, lead.ID)
		}
	}

	assert.Equal(t, 3, batches)
	assert.Equal(t, []string{"lead-0", "lead-1", "lead-2", "lead-3", "lead-4"}, seen)

	// Exhausted streams stay exhausted.
	batch, err := stream.Next()
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestResolveInvalidRulesFailClosed(t *testing.T) {
	store := newFakeLeadStore(&models.Lead{ID: "lead-1", TenantID: "tenant-1"})
	resolver := NewSegmentResolver(store)

	cases := []struct {
		name    string
		segment *models.Segment
	}{
		{"nil segment", nil},
		{"no rules", &models.Segment{ID: "seg-1", TenantID: "tenant-1"}},
		{"bad match mode", &models.Segment{ID: "seg-2", TenantID: "tenant-1", Rules: models.JSON{
			"match": "xor",
			"rules": []interface{}{map[string]interface{}{"field": "status", "operator": "eq", "value": "new"}},
		}}},
		{"unknown field", &models.Segment{ID: "seg-3", TenantID: "tenant-1", Rules: models.JSON{
			"match": "and",
			"rules": []interface{}{map[string]interface{}{"field": "password", "operator": "eq", "value": "x"}},
		}}},
		{"unknown operator", &models.Segment{ID: "seg-4", TenantID: "tenant-1", Rules: models.JSON{
			"match": "and",
			"rules": []interface{}{map[string]interface{}{"field": "status", "operator": "like", "value": "x"}},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stream := resolver.Resolve("tenant-1", tc.segment, 10)
			batch, err := stream.Next()
			require.NoError(t, err)
			assert.Empty(t, batch)
		})
	}
}

func TestResolveNestedGroups(t *testing.T) {
	store := newFakeLeadStore(&models.Lead{ID: "lead-1", TenantID: "tenant-1"})
	resolver := NewSegmentResolver(store)

	segment := &models.Segment{ID: "seg-1", TenantID: "tenant-1", Rules: models.JSON{
		"match": "or",
		"groups": []interface{}{
			map[string]interface{}{
				"match": "and",
				"rules": []interface{}{
					map[string]interface{}{"field": "country", "operator": "in", "value": []interface{}{"US", "CA"}},
					map[string]interface{}{"field": "status", "operator": "neq", "value": "lost"},
				},
			},
		},
	}}

	stream := resolver.Resolve("tenant-1", segment, 10)
	batch, err := stream.Next()
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}
