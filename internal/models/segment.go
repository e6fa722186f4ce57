package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Segment is a named, declarative audience definition. Membership is
// re-evaluated on every generation pass, never snapshotted.
type Segment struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID string `json:"tenant_id" gorm:"not null;index;type:uuid"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`

	// Rule tree, see SegmentRuleGroup
	Rules JSON `json:"rules" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Segment model
func (Segment) TableName() string {
	return "segments"
}

// Segment rule operators
const (
	OpEqual     = "eq"
	OpNotEqual  = "neq"
	OpIn        = "in"
	OpNotIn     = "not_in"
	OpGreater   = "gt"
	OpGreaterEq = "gte"
	OpLess      = "lt"
	OpLessEq    = "lte"
	OpExists    = "exists"
	OpNotExists = "not_exists"
	OpContains  = "contains"
)

// SegmentRule is one predicate over a lead attribute
type SegmentRule struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// SegmentRuleGroup composes rules and nested groups with AND/OR semantics
type SegmentRuleGroup struct {
	Match  string             `json:"match"` // "and" or "or"
	Rules  []SegmentRule      `json:"rules,omitempty"`
	Groups []SegmentRuleGroup `json:"groups,omitempty"`
}

// segmentFields whitelists the lead columns a rule may reference
var segmentFields = map[string]bool{
	"email":      true,
	"phone":      true,
	"first_name": true,
	"last_name":  true,
	"company":    true,
	"country":    true,
	"status":     true,
	"source":     true,
}

var segmentOperators = map[string]bool{
	OpEqual:     true,
	OpNotEqual:  true,
	OpIn:        true,
	OpNotIn:     true,
	OpGreater:   true,
	OpGreaterEq: true,
	OpLess:      true,
	OpLessEq:    true,
	OpExists:    true,
	OpNotExists: true,
	OpContains:  true,
}

// ParsedRules decodes the rule tree from the jsonb blob
func (s *Segment) ParsedRules() (*SegmentRuleGroup, error) {
	if len(s.Rules) == 0 {
		return nil, fmt.Errorf("segment %s has no rules", s.ID)
	}
	raw, err := json.Marshal(s.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segment rules: %w", err)
	}
	var group SegmentRuleGroup
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("failed to decode segment rules: %w", err)
	}
	return &group, nil
}

// Validate checks the rule tree against the field and operator whitelists.
// Resolution fails closed: an invalid tree matches nothing.
func (g *SegmentRuleGroup) Validate() error {
	if g == nil {
		return fmt.Errorf("empty rule group")
	}
	if g.Match != "and" && g.Match != "or" {
		return fmt.Errorf("invalid match mode %q", g.Match)
	}
	if len(g.Rules) == 0 && len(g.Groups) == 0 {
		return fmt.Errorf("rule group has no predicates")
	}
	for _, rule := range g.Rules {
		if !segmentFields[rule.Field] {
			return fmt.Errorf("unknown segment field %q", rule.Field)
		}
		if !segmentOperators[rule.Operator] {
			return fmt.Errorf("unknown segment operator %q", rule.Operator)
		}
	}
	for i := range g.Groups {
		if err := g.Groups[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
