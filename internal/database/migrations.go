package database

import (
	"gorm.io/gorm"
)

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	// Index for case lookups by publication date
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cases_publication_date
		ON insolvency_cases(publication_date)
	`).Error; err != nil {
		return err
	}

	// Index for court bucketing on the dashboard
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cases_court
		ON insolvency_cases(court)
	`).Error; err != nil {
		return err
	}

	// Index for lawyer case lookups
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cases_lawyer
		ON insolvency_cases(lawyer_id)
	`).Error; err != nil {
		return err
	}

	return nil
}
