package gazette

import (
	"testing"
)

func TestExtractStructuredPass(t *testing.T) {
	doc := &NoticeDocument{
		MessageNumber:   "S1000",
		Title:           "Testselskab ApS under konkurs",
		PublicationDate: "2025-10-23T00:00:00",
		FieldGroups: []FieldGroup{
			{
				Name: "Virksomheden",
				Fields: []Field{
					{Name: "CVR-nr.", Value: "CVR-nr. 12345678"},
				},
			},
			{
				Name: "Skifteretten",
				Fields: []Field{
					{Name: "Ret", Value: "Skifteretten i Aarhus"},
				},
			},
			{
				Name: "Kurator",
				Fields: []Field{
					{Name: "Navn", Value: "Advokat Jens Hansen"},
				},
			},
		},
	}

	c := NewExtractor().Extract(doc)

	if c.RegistryID != "12345678" {
		t.Errorf("Expected registry id 12345678, got %q", c.RegistryID)
	}
	if c.Court != "Skifteretten i Aarhus" {
		t.Errorf("Expected court, got %q", c.Court)
	}
	if c.LawyerName != "Jens Hansen" {
		t.Errorf("Expected lawyer title stripped, got %q", c.LawyerName)
	}
	if c.CompanyName != "Testselskab ApS under konkurs" {
		t.Errorf("Expected company name from title, got %q", c.CompanyName)
	}
}

func TestExtractFieldNameMatchIsCaseInsensitive(t *testing.T) {
	doc := &NoticeDocument{
		FieldGroups: []FieldGroup{
			{Name: "Stamdata", Fields: []Field{{Name: "Cvr-Nummer", Value: "87 65 43 21"}}},
			{Name: "SKIFTERETTEN I ODENSE", Fields: []Field{{Name: "", Value: "Skifteretten i Odense"}}},
		},
	}

	c := NewExtractor().Extract(doc)

	if c.RegistryID != "87654321" {
		t.Errorf("Expected digits-only registry id, got %q", c.RegistryID)
	}
	if c.Court != "Skifteretten i Odense" {
		t.Errorf("Expected court from uppercased group, got %q", c.Court)
	}
}

func TestExtractSummaryFallback(t *testing.T) {
	doc := &NoticeDocument{
		Title: "",
		SummaryFields: []SummaryField{
			{Label: "Konkursbo", Value: "Faldet Selskab ApS"},
			{Label: "CVR-nr", Value: "11223344"},
			{Label: "Ret", Value: "Skifteretten i Viborg"},
		},
	}

	c := NewExtractor().Extract(doc)

	if c.CompanyName != "Faldet Selskab ApS" {
		t.Errorf("Expected company name from summary, got %q", c.CompanyName)
	}
	if c.RegistryID != "11223344" {
		t.Errorf("Expected registry id from summary, got %q", c.RegistryID)
	}
	if c.Court != "Skifteretten i Viborg" {
		t.Errorf("Expected court from summary, got %q", c.Court)
	}
}

func TestExtractRegexFallback(t *testing.T) {
	doc := &NoticeDocument{
		Title: "Konkursdekret",
		Raw:   `{"body":"Selskabet, CVR-nr. 55667788, er taget under konkursbehandling. Kurator: Advokat Mette Sørensen, Advokatfirmaet Nord, Aalborg."}`,
	}

	c := NewExtractor().Extract(doc)

	if c.RegistryID != "55667788" {
		t.Errorf("Expected registry id from regex, got %q", c.RegistryID)
	}
	if c.LawyerName != "Mette Sørensen" {
		t.Errorf("Expected lawyer from regex with title stripped, got %q", c.LawyerName)
	}
}

func TestExtractStructuredWinsOverFallback(t *testing.T) {
	doc := &NoticeDocument{
		FieldGroups: []FieldGroup{
			{Name: "Kurator", Fields: []Field{{Name: "Navn", Value: "Lars Larsen"}}},
		},
		SummaryFields: []SummaryField{
			{Label: "Ret", Value: "Skifteretten i Esbjerg"},
		},
		Raw: `{"body":"Kurator: Advokat En Anden"}`,
	}

	c := NewExtractor().Extract(doc)

	if c.LawyerName != "Lars Larsen" {
		t.Errorf("Structured value should win, got %q", c.LawyerName)
	}
	if c.Court != "Skifteretten i Esbjerg" {
		t.Errorf("Fallback should fill unset fields, got %q", c.Court)
	}
}

func TestExtractIsTotal(t *testing.T) {
	tests := []struct {
		name string
		doc  *NoticeDocument
	}{
		{name: "Empty document", doc: &NoticeDocument{}},
		{
			name: "All-empty field groups",
			doc: &NoticeDocument{
				FieldGroups:        []FieldGroup{{Name: "", Fields: nil}, {Name: "Andet", Fields: []Field{{}}}},
				DefaultFieldGroups: []FieldGroup{{}},
			},
		},
		{
			name: "Owner name default",
			doc:  &NoticeDocument{OwnerName: "Ejerselskabet ApS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewExtractor().Extract(tt.doc)
			if tt.doc.OwnerName != "" && c.CompanyName != tt.doc.OwnerName {
				t.Errorf("Expected owner name default, got %q", c.CompanyName)
			}
		})
	}
}

func TestStripLawyerTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Advokat Jens Hansen", want: "Jens Hansen"},
		{in: "advokat Mette Sørensen", want: "Mette Sørensen"},
		{in: "Jens Hansen", want: "Jens Hansen"},
		{in: "Advokat", want: "Advokat"},
		{in: "  ", want: ""},
	}

	for _, tt := range tests {
		if got := stripLawyerTitle(tt.in); got != tt.want {
			t.Errorf("stripLawyerTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
