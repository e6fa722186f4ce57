package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// LeadStore is the write surface the importer needs
type LeadStore interface {
	CreateBatch(leads []*models.Lead) error
}

// Service handles Excel operations for lead data
type Service struct {
	leadRepo LeadStore
}

// NewLeadImportService creates a new Excel service instance
func NewLeadImportService(leadRepo LeadStore) *Service {
	return &Service{leadRepo: leadRepo}
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	RecordsCount int      `json:"records_count"`
	SkippedCount int      `json:"skipped_count"`
	RowErrors    []string `json:"row_errors,omitempty"`
}

var leadColumns = []string{"email", "phone", "first_name", "last_name", "company", "country", "status", "source"}

// ImportLeads reads leads from an uploaded Excel file and stores them for
// the tenant. The first row must be a header; recognized columns are
// matched by name in any order. Rows that cannot be parsed are skipped and
// reported, they never abort the import.
func (s *Service) ImportLeads(tenantID string, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	// Map header names to column positions
	columnIndex := make(map[string]int)
	for i, header := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(header))
		for _, known := range leadColumns {
			if name == known {
				columnIndex[known] = i
			}
		}
	}
	if _, hasEmail := columnIndex["email"]; !hasEmail {
		if _, hasPhone := columnIndex["phone"]; !hasPhone {
			return nil, fmt.Errorf("header row must contain an email or phone column")
		}
	}

	result := &ImportResult{}
	var batch []*models.Lead

	cell := func(row []string, column string) string {
		idx, ok := columnIndex[column]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for rowNum, row := range rows[1:] {
		email := cell(row, "email")
		phone := cell(row, "phone")
		if email == "" && phone == "" {
			result.SkippedCount++
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: no email or phone", rowNum+2))
			continue
		}
		if email != "" && !strings.Contains(email, "@") {
			result.SkippedCount++
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: invalid email %q", rowNum+2, email))
			continue
		}

		lead := &models.Lead{
			TenantID:  tenantID,
			Email:     email,
			Phone:     phone,
			FirstName: cell(row, "first_name"),
			LastName:  cell(row, "last_name"),
			Company:   cell(row, "company"),
			Country:   strings.ToUpper(cell(row, "country")),
			Status:    cell(row, "status"),
			Source:    cell(row, "source"),
		}
		if lead.Status == "" {
			lead.Status = models.LeadStatusNew
		}
		if lead.Source == "" {
			lead.Source = "excel_import"
		}
		batch = append(batch, lead)
	}

	if len(batch) > 0 {
		if err := s.leadRepo.CreateBatch(batch); err != nil {
			return nil, fmt.Errorf("failed to save leads: %w", err)
		}
	}

	result.Success = true
	result.RecordsCount = len(batch)
	result.Message = fmt.Sprintf("Imported %d leads (%d rows skipped)", result.RecordsCount, result.SkippedCount)
	logrus.Infof("Excel import for tenant %s: %s", tenantID, result.Message)
	return result, nil
}
