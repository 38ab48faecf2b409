package guests

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/domain"
	"github.com/eventhub-saas/eventhub/internal/entitlement"
	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaxImportRows bounds a single import batch.
const MaxImportRows = 5000

const importBatchSize = 200

// Import inserts a batch of guests. The quota check is sized to the whole batch
// and a batch that does not fit, or has any invalid row, writes nothing.
func (s *Service) Import(ctx context.Context, tenantID, eventID uint64, batch []CreateInput) (int, error) {
	if _, errOwned := events.Owned(ctx, s.db, tenantID, eventID); errOwned != nil {
		return 0, errOwned
	}
	if len(batch) == 0 {
		return 0, domain.Invalid("guests", "must not be empty")
	}
	if len(batch) > MaxImportRows {
		return 0, domain.Invalid("guests", fmt.Sprintf("at most %d guests per import", MaxImportRows))
	}

	fields := domain.FieldErrors{}
	rows := make([]models.Guest, 0, len(batch))
	for i, in := range batch {
		rows = append(rows, in.build(eventID, fmt.Sprintf("guests[%d].", i), fields))
	}
	if errFields := fields.OrNil(); errFields != nil {
		return 0, errFields
	}
	if errQuota := s.checkGuestQuota(ctx, tenantID, eventID, len(rows)); errQuota != nil {
		return 0, errQuota
	}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, importBatchSize).Error
	})
	if errTx != nil {
		return 0, fmt.Errorf("guests: import: %w", errTx)
	}
	log.WithFields(log.Fields{"event_id": eventID, "count": len(rows)}).Info("guests: import completed")
	return len(rows), nil
}

var csvColumns = []string{"first_name", "last_name", "email", "phone", "category", "companion_limit"}

// ParseCSV reads guest rows. The header must name first_name; other known columns are optional
// and may appear in any order. A full_name column is accepted in place of first/last names.
func ParseCSV(r io.Reader) ([]CreateInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, errHeader := reader.Read()
	if errHeader != nil {
		if errors.Is(errHeader, io.EOF) {
			return nil, domain.Invalid("file", "csv is empty")
		}
		return nil, domain.Invalid("file", "csv header could not be read")
	}
	index := map[string]int{}
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	_, hasFirst := index["first_name"]
	_, hasFull := index["full_name"]
	if !hasFirst && !hasFull {
		return nil, domain.Invalid("file", "csv header must include "+strings.Join(csvColumns, ","))
	}

	value := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []CreateInput
	for line := 2; ; line++ {
		record, errRead := reader.Read()
		if errors.Is(errRead, io.EOF) {
			break
		}
		if errRead != nil {
			return nil, domain.Invalid("file", fmt.Sprintf("line %d: %v", line, errRead))
		}
		if isBlank(record) {
			continue
		}
		in := CreateInput{
			FirstName: value(record, "first_name"),
			LastName:  value(record, "last_name"),
			FullName:  value(record, "full_name"),
			Email:     value(record, "email"),
			Phone:     value(record, "phone"),
			Category:  value(record, "category"),
		}
		if raw := value(record, "companion_limit"); raw != "" {
			limit, errAtoi := strconv.Atoi(raw)
			if errAtoi != nil || limit < 0 {
				return nil, domain.Invalid("file", fmt.Sprintf("line %d: companion_limit must be a non-negative number", line))
			}
			in.CompanionLimit = limit
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, domain.Invalid("file", "csv has no guest rows")
	}
	return out, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportCSV parses a CSV upload and imports it. Requires the csv_import feature.
func (s *Service) ImportCSV(ctx context.Context, tenantID, eventID uint64, r io.Reader) (int, error) {
	if errFeature := s.resolver.RequireFeature(ctx, tenantID, entitlement.FeatureCSVImport); errFeature != nil {
		return 0, errFeature
	}
	batch, errParse := ParseCSV(r)
	if errParse != nil {
		return 0, errParse
	}
	return s.Import(ctx, tenantID, eventID, batch)
}
