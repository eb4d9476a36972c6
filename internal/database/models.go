package database

import (
	"time"

	"gorm.io/gorm"
)

type IngestionLog struct {
	gorm.Model
	RunDate          string    `json:"run_date" gorm:"index"`
	NoticesFound     int       `json:"notices_found"`
	CasesCreated     int       `json:"cases_created"`
	CasesUpdated     int       `json:"cases_updated"`
	CasesSkipped     int       `json:"cases_skipped"`
	EnrichmentErrors int       `json:"enrichment_errors"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

type Company struct {
	gorm.Model
	RegistryID    string `json:"registry_id" gorm:"uniqueIndex"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	StreetName    string `json:"street_name"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	EmployeeCount int    `json:"employee_count"`
	Assets        string `json:"assets" gorm:"type:text"`
	RawPayload    string `json:"raw_payload" gorm:"type:text"`
	LawyerID      *uint  `json:"lawyer_id"`
}

type Lawyer struct {
	gorm.Model
	Name       string `json:"name" gorm:"uniqueIndex:idx_lawyer_name_firm"`
	Firm       string `json:"firm" gorm:"uniqueIndex:idx_lawyer_name_firm"`
	City       string `json:"city"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	RegistryID string `json:"registry_id"`
}

type InsolvencyCase struct {
	gorm.Model
	MessageNumber   string    `json:"message_number" gorm:"uniqueIndex"`
	CompanyName     string    `json:"company_name"`
	Court           string    `json:"court"`
	LawyerName      string    `json:"lawyer_name"`
	PublicationDate time.Time `json:"publication_date"`
	RawNotice       string    `json:"raw_notice" gorm:"type:text"`
	CompanyID       *uint     `json:"company_id"`
	LawyerID        *uint     `json:"lawyer_id"`
	Company         *Company  `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	Lawyer          *Lawyer   `json:"lawyer,omitempty" gorm:"foreignKey:LawyerID"`
}

func (IngestionLog) TableName() string {
	return "ingestion_logs"
}

func (Company) TableName() string {
	return "companies"
}

func (Lawyer) TableName() string {
	return "lawyers"
}

func (InsolvencyCase) TableName() string {
	return "insolvency_cases"
}
