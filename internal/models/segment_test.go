package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedRulesRoundTrip(t *testing.T) {
	segment := &Segment{ID: "seg-1", Rules: JSON{
		"match": "and",
		"rules": []interface{}{
			map[string]interface{}{"field": "status", "operator": "eq", "value": "new"},
		},
		"groups": []interface{}{
			map[string]interface{}{
				"match": "or",
				"rules": []interface{}{
					map[string]interface{}{"field": "country", "operator": "in", "value": []interface{}{"US", "CA"}},
				},
			},
		},
	}}

	group, err := segment.ParsedRules()
	require.NoError(t, err)
	assert.Equal(t, "and", group.Match)
	require.Len(t, group.Rules, 1)
	assert.Equal(t, "status", group.Rules[0].Field)
	require.Len(t, group.Groups, 1)
	assert.Equal(t, "or", group.Groups[0].Match)
	require.NoError(t, group.Validate())
}

func TestParsedRulesEmpty(t *testing.T) {
	segment := &Segment{ID: "seg-1"}
	_, err := segment.ParsedRules()
	assert.Error(t, err)
}

func TestValidateRejectsBadTrees(t *testing.T) {
	cases := []struct {
		name  string
		group *SegmentRuleGroup
	}{
		{"nil group", nil},
		{"bad match", &SegmentRuleGroup{Match: "xor", Rules: []SegmentRule{{Field: "status", Operator: OpEqual}}}},
		{"no predicates", &SegmentRuleGroup{Match: "and"}},
		{"unknown field", &SegmentRuleGroup{Match: "and", Rules: []SegmentRule{{Field: "ssn", Operator: OpEqual}}}},
		{"unknown operator", &SegmentRuleGroup{Match: "and", Rules: []SegmentRule{{Field: "status", Operator: "like"}}}},
		{"invalid nested group", &SegmentRuleGroup{Match: "and", Groups: []SegmentRuleGroup{{Match: "and"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.group.Validate())
		})
	}
}

func TestValidateAcceptsAllOperators(t *testing.T) {
	for op := range segmentOperators {
		group := &SegmentRuleGroup{Match: "and", Rules: []SegmentRule{{Field: "status", Operator: op, Value: "x"}}}
		assert.NoError(t, group.Validate(), op)
	}
}
