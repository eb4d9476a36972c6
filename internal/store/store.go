package store

import (
	"errors"
	"fmt"

	"github.com/bohenriksen2020/insolvency-scraper/internal/database"
	"gorm.io/gorm"
)

// Store exposes the idempotent upsert operations used by the ingestion
// pipeline. Each case runs inside its own transaction; a conflict rolls
// back that case only.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn in one database transaction
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// UpsertCompany inserts a company or partially overwrites an existing row
// keyed by registry id: only fields carried by the incoming record are
// applied, everything else is left untouched
func (s *Store) UpsertCompany(tx *gorm.DB, incoming *database.Company) (*database.Company, error) {
	if incoming.RegistryID == "" {
		return nil, fmt.Errorf("company upsert requires a registry id")
	}

	var existing database.Company
	err := tx.Where("registry_id = ?", incoming.RegistryID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(incoming).Error; err != nil {
			return nil, fmt.Errorf("failed to insert company: %w", err)
		}
		return incoming, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}

	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.Status != "" {
		existing.Status = incoming.Status
	}
	if incoming.StreetName != "" {
		existing.StreetName = incoming.StreetName
	}
	if incoming.PostalCode != "" {
		existing.PostalCode = incoming.PostalCode
	}
	if incoming.City != "" {
		existing.City = incoming.City
	}
	if incoming.EmployeeCount != 0 {
		existing.EmployeeCount = incoming.EmployeeCount
	}
	if incoming.Assets != "" {
		existing.Assets = incoming.Assets
	}
	if incoming.RawPayload != "" {
		existing.RawPayload = incoming.RawPayload
	}
	if incoming.LawyerID != nil {
		existing.LawyerID = incoming.LawyerID
	}

	if err := tx.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return &existing, nil
}

// UpsertLawyer inserts a lawyer or partially overwrites an existing row
// keyed by the (name, firm) pair; names alone are not unique across firms
func (s *Store) UpsertLawyer(tx *gorm.DB, incoming *database.Lawyer) (*database.Lawyer, error) {
	if incoming.Name == "" {
		return nil, fmt.Errorf("lawyer upsert requires a name")
	}

	var existing database.Lawyer
	err := tx.Where("name = ? AND firm = ?", incoming.Name, incoming.Firm).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(incoming).Error; err != nil {
			return nil, fmt.Errorf("failed to insert lawyer: %w", err)
		}
		return incoming, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up lawyer: %w", err)
	}

	if incoming.City != "" {
		existing.City = incoming.City
	}
	if incoming.Email != "" {
		existing.Email = incoming.Email
	}
	if incoming.Phone != "" {
		existing.Phone = incoming.Phone
	}
	if incoming.RegistryID != "" {
		existing.RegistryID = incoming.RegistryID
	}

	if err := tx.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to update lawyer: %w", err)
	}
	return &existing, nil
}

// UpsertCase inserts a case or fully overwrites the mapped fields of an
// existing row keyed by message number, relinking its foreign keys.
// Returns whether a new row was created.
func (s *Store) UpsertCase(tx *gorm.DB, incoming *database.InsolvencyCase) (bool, error) {
	if incoming.MessageNumber == "" {
		return false, fmt.Errorf("case upsert requires a message number")
	}

	var existing database.InsolvencyCase
	err := tx.Where("message_number = ?", incoming.MessageNumber).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(incoming).Error; err != nil {
			return false, fmt.Errorf("failed to insert case: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up case: %w", err)
	}

	existing.CompanyName = incoming.CompanyName
	existing.Court = incoming.Court
	existing.LawyerName = incoming.LawyerName
	existing.PublicationDate = incoming.PublicationDate
	existing.RawNotice = incoming.RawNotice
	existing.CompanyID = incoming.CompanyID
	existing.LawyerID = incoming.LawyerID

	if err := tx.Save(&existing).Error; err != nil {
		return false, fmt.Errorf("failed to update case: %w", err)
	}
	return false, nil
}

// RecordRun persists one ingestion run log row for audit
func (s *Store) RecordRun(entry *database.IngestionLog) error {
	return s.db.Create(entry).Error
}
