package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create creates a new lead
func (r *LeadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

// CreateBatch inserts leads in one statement
func (r *LeadRepository) CreateBatch(leads []*models.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return r.db.Create(&leads).Error
}

// GetByID retrieves a lead scoped to a tenant
func (r *LeadRepository) GetByID(tenantID, id string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// FindBySegment compiles a segment rule tree into SQL and returns one page
// of matching leads in stable id order. The cursor is the last id of the
// previous page, so a restarted pass resumes from the same position.
func (r *LeadRepository) FindBySegment(tenantID string, rules *models.SegmentRuleGroup, afterID string, limit int) ([]*models.Lead, error) {
	clause, args, err := compileRuleGroup(rules)
	if err != nil {
		return nil, err
	}

	query := r.db.Where("tenant_id = ?", tenantID).Where(clause, args...)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}

	var leads []*models.Lead
	err = query.Order("id asc").Limit(limit).Find(&leads).Error
	return leads, err
}

// IncrementOutbound bumps the fatigue counters after a message is created
func (r *LeadRepository) IncrementOutbound(tenantID, id string, at time.Time) error {
	return r.db.Model(&models.Lead{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{
			"outbound_count":    gorm.Expr("outbound_count + 1"),
			"last_contacted_at": at,
		}).Error
}

// compileRuleGroup renders an AND/OR group into a parenthesized SQL
// fragment. Fields and operators are validated upstream; this only maps
// whitelisted names to columns.
func compileRuleGroup(group *models.SegmentRuleGroup) (string, []interface{}, error) {
	if group == nil {
		return "", nil, fmt.Errorf("nil rule group")
	}

	joiner := " AND "
	if group.Match == "or" {
		joiner = " OR "
	}

	var parts []string
	var args []interface{}

	for _, rule := range group.Rules {
		clause, ruleArgs, err := compileRule(rule)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, ruleArgs...)
	}

	for i := range group.Groups {
		clause, groupArgs, err := compileRuleGroup(&group.Groups[i])
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, groupArgs...)
	}

	if len(parts) == 0 {
		return "", nil, fmt.Errorf("rule group has no predicates")
	}

	return "(" + strings.Join(parts, joiner) + ")", args, nil
}

func compileRule(rule models.SegmentRule) (string, []interface{}, error) {
	field := rule.Field

	switch rule.Operator {
	case models.OpEqual:
		return field + " = ?", []interface{}{rule.Value}, nil
	case models.OpNotEqual:
		return field + " <> ?", []interface{}{rule.Value}, nil
	case models.OpIn:
		return field + " IN ?", []interface{}{toSlice(rule.Value)}, nil
	case models.OpNotIn:
		return field + " NOT IN ?", []interface{}{toSlice(rule.Value)}, nil
	case models.OpGreater:
		return field + " > ?", []interface{}{rule.Value}, nil
	case models.OpGreaterEq:
		return field + " >= ?", []interface{}{rule.Value}, nil
	case models.OpLess:
		return field + " < ?", []interface{}{rule.Value}, nil
	case models.OpLessEq:
		return field + " <= ?", []interface{}{rule.Value}, nil
	case models.OpExists:
		return "(" + field + " IS NOT NULL AND " + field + " <> '')", nil, nil
	case models.OpNotExists:
		return "(" + field + " IS NULL OR " + field + " = '')", nil, nil
	case models.OpContains:
		return field + " ILIKE ?", []interface{}{"%" + fmt.Sprintf("%v", rule.Value) + "%"}, nil
	default:
		return "", nil, fmt.Errorf("unknown segment operator %q", rule.Operator)
	}
}

func toSlice(value interface{}) []interface{} {
	if items, ok := value.([]interface{}); ok {
		return items
	}
	return []interface{}{value}
}
