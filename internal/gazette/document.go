package gazette

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedDocument is returned when a notice document fails
// structural validation
var ErrMalformedDocument = errors.New("malformed notice document")

// Field is one named value inside a field group
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FieldGroup is a named group of fields inside a notice document
type FieldGroup struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// SummaryField is one label/value pair from the notice summary
type SummaryField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// NoticeDocument is the full body of one published notice
type NoticeDocument struct {
	MessageNumber      string
	Title              string
	OwnerName          string
	PublicationDate    string
	SummaryFields      []SummaryField
	FieldGroups        []FieldGroup
	DefaultFieldGroups []FieldGroup

	// Raw keeps the serialized message for the regex fallback passes
	// and for the audit column on the persisted case.
	Raw string
}

type messageEnvelope struct {
	Message json.RawMessage `json:"message"`
}

type messageBody struct {
	MessageNumber   string          `json:"messageNumber"`
	Title           string          `json:"title"`
	OwnerName       string          `json:"ownerName"`
	PublicationDate string          `json:"publicationDate"`
	SummaryFields   []SummaryField  `json:"summaryFields"`
	Document        json.RawMessage `json:"document"`
}

// ParseNoticeDocument normalizes a raw message payload into a
// NoticeDocument. The payload may wrap the message in a "message" key,
// and the embedded document may be either a literal JSON string or an
// object; both forms must expose fieldgroups and defaultfieldgroups.
func ParseNoticeDocument(payload []byte) (*NoticeDocument, error) {
	var envelope messageEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	raw := payload
	if len(envelope.Message) > 0 && string(envelope.Message) != "null" {
		raw = envelope.Message
	}

	var msg messageBody
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if len(msg.Document) == 0 {
		return nil, fmt.Errorf("%w: document missing", ErrMalformedDocument)
	}

	docBytes := []byte(msg.Document)
	if docBytes[0] == '"' {
		// document is a JSON string holding serialized JSON
		var inner string
		if err := json.Unmarshal(docBytes, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		docBytes = []byte(inner)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(docBytes, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	groupsRaw, hasGroups := keys["fieldgroups"]
	defaultsRaw, hasDefaults := keys["defaultfieldgroups"]
	if !hasGroups || !hasDefaults {
		return nil, fmt.Errorf("%w: document missing required keys", ErrMalformedDocument)
	}

	doc := &NoticeDocument{
		MessageNumber:   msg.MessageNumber,
		Title:           msg.Title,
		OwnerName:       msg.OwnerName,
		PublicationDate: msg.PublicationDate,
		SummaryFields:   msg.SummaryFields,
		Raw:             string(raw),
	}
	if err := json.Unmarshal(groupsRaw, &doc.FieldGroups); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := json.Unmarshal(defaultsRaw, &doc.DefaultFieldGroups); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return doc, nil
}
