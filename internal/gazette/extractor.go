package gazette

import (
	"regexp"
	"strings"
)

// NormalizedCase is the deterministic, re-derivable record produced from
// one notice document. Missing fields stay empty, never cause an error.
type NormalizedCase struct {
	MessageNumber   string `json:"message_number"`
	CompanyName     string `json:"company_name"`
	RegistryID      string `json:"registry_id"`
	Court           string `json:"court"`
	LawyerName      string `json:"lawyer_name"`
	PublicationDate string `json:"publication_date"`
}

var (
	lawyerPattern     = regexp.MustCompile(`(?i)Kurator:\s*(?:Advokat\s+)?([A-ZÆØÅa-zæøå\s\-]+)`)
	registryIDPattern = regexp.MustCompile(`(?i)CVR-?nr\.?:?\s*(\d{8})`)
	nonDigits         = regexp.MustCompile(`\D`)
)

// summaryLabelMap maps summary-field labels to case fields for the
// fallback pass
var summaryLabelMap = map[string]string{
	"Selskab":   "company_name",
	"Navn":      "company_name",
	"Konkursbo": "company_name",
	"CVR-nr":    "cvr",
	"CVR":       "cvr",
	"Ret":       "court",
}

// Extractor turns notice documents into normalized cases
type Extractor struct{}

// NewExtractor creates a field extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract derives a NormalizedCase from a notice document. Extraction is
// total: documents with empty or unrecognized groups produce a case with
// empty fields.
func (e *Extractor) Extract(doc *NoticeDocument) NormalizedCase {
	c := NormalizedCase{
		MessageNumber:   doc.MessageNumber,
		PublicationDate: doc.PublicationDate,
	}

	e.structuredPass(doc, &c)
	e.fallbackPass(doc, &c)

	if c.CompanyName == "" {
		c.CompanyName = strings.TrimSpace(doc.Title)
	}
	if c.CompanyName == "" {
		c.CompanyName = strings.TrimSpace(doc.OwnerName)
	}

	return c
}

// structuredPass walks the document's field groups, matching group and
// field names case-insensitively against keyword fragments
func (e *Extractor) structuredPass(doc *NoticeDocument, c *NormalizedCase) {
	groups := make([]FieldGroup, 0, len(doc.FieldGroups)+len(doc.DefaultFieldGroups))
	groups = append(groups, doc.FieldGroups...)
	groups = append(groups, doc.DefaultFieldGroups...)

	for _, group := range groups {
		groupName := strings.ToLower(group.Name)

		if c.Court == "" && strings.Contains(groupName, "skifteret") {
			c.Court = firstFieldValue(group)
		}
		if c.LawyerName == "" && strings.Contains(groupName, "kurator") {
			c.LawyerName = stripLawyerTitle(firstFieldValue(group))
		}

		for _, field := range group.Fields {
			if c.RegistryID != "" {
				break
			}
			if strings.Contains(strings.ToLower(field.Name), "cvr") {
				if digits := nonDigits.ReplaceAllString(field.Value, ""); digits != "" {
					c.RegistryID = digits
				}
			}
		}
	}
}

// fallbackPass fills fields the structured pass left empty, first from
// the summary-field label map, then from regex patterns over the raw
// serialized message
func (e *Extractor) fallbackPass(doc *NoticeDocument, c *NormalizedCase) {
	for _, summary := range doc.SummaryFields {
		field, ok := summaryLabelMap[summary.Label]
		if !ok || strings.TrimSpace(summary.Value) == "" {
			continue
		}
		value := strings.TrimSpace(summary.Value)
		switch field {
		case "company_name":
			if c.CompanyName == "" {
				c.CompanyName = value
			}
		case "cvr":
			if c.RegistryID == "" {
				if digits := nonDigits.ReplaceAllString(value, ""); digits != "" {
					c.RegistryID = digits
				}
			}
		case "court":
			if c.Court == "" {
				c.Court = value
			}
		}
	}

	if c.LawyerName == "" {
		if m := lawyerPattern.FindStringSubmatch(doc.Raw); len(m) > 1 {
			c.LawyerName = strings.TrimSpace(m[1])
		}
	}
	if c.RegistryID == "" {
		if m := registryIDPattern.FindStringSubmatch(doc.Raw); len(m) > 1 {
			c.RegistryID = m[1]
		}
	}
}

// firstFieldValue returns the first non-empty field value in a group
func firstFieldValue(group FieldGroup) string {
	for _, field := range group.Fields {
		if value := strings.TrimSpace(field.Value); value != "" {
			return value
		}
	}
	return ""
}

// stripLawyerTitle removes a leading "Advokat" title token
func stripLawyerTitle(name string) string {
	trimmed := strings.TrimSpace(name)
	fields := strings.Fields(trimmed)
	if len(fields) > 1 && strings.EqualFold(fields[0], "advokat") {
		return strings.Join(fields[1:], " ")
	}
	return trimmed
}
