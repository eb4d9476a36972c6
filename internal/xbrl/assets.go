package xbrl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedDocument is returned when a financial statement cannot be
// parsed as well-formed XML
var ErrMalformedDocument = errors.New("malformed financial statement document")

// AssetField is one labeled numeric line item from a financial statement
type AssetField struct {
	Tag   string  `json:"tag"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// assetLabels maps element local names (namespace prefix stripped) to
// display labels. Filings mix danGAAP, IFRS and fsa prefixes for the
// same concepts, so matching happens on the local name only.
var assetLabels = map[string]string{
	// Tangible assets
	"PropertyPlantAndEquipment":            "Tangible assets (IFRS)",
	"TangibleFixedAssets":                  "Tangible assets (Danish GAAP)",
	"LandAndBuildings":                     "Land and buildings",
	"Buildings":                            "Buildings",
	"Vehicles":                             "Vehicles",
	"FixturesAndFittingsToolsAndEquipment": "Fixtures, fittings & tools",
	"OtherTangibleFixedAssets":             "Other tangible fixed assets",

	// Intangible assets
	"IntangibleAssets": "Intangible assets",
	"Goodwill":         "Goodwill",
	"DevelopmentCosts": "Development costs",

	// Inventories
	"Inventories":                    "Inventories",
	"RawMaterialsAndConsumables":     "Raw materials & consumables",
	"FinishedGoodsAndGoodsForResale": "Finished goods & resale goods",

	// Liabilities & equity
	"Equity":                    "Equity",
	"Provisions":                "Provisions",
	"LongTermDebt":              "Long-term debt",
	"ShortTermDebt":             "Short-term debt",
	"CurrentLiabilities":        "Current liabilities",
	"TotalLiabilitiesAndEquity": "Liabilities + Equity (total)",
}

// displayOrder fixes the emitted field order. Tags missing from this list
// sort after all listed tags.
var displayOrder = []string{
	"TangibleFixedAssets",
	"PropertyPlantAndEquipment",
	"LandAndBuildings",
	"Buildings",
	"Vehicles",
	"FixturesAndFittingsToolsAndEquipment",
	"OtherTangibleFixedAssets",
	"IntangibleAssets",
	"Goodwill",
	"DevelopmentCosts",
	"Inventories",
	"RawMaterialsAndConsumables",
	"FinishedGoodsAndGoodsForResale",
	"Equity",
	"Provisions",
	"LongTermDebt",
	"ShortTermDebt",
	"CurrentLiabilities",
	"TotalLiabilitiesAndEquity",
}

// ExtractAssets parses a financial statement XML document and returns the
// watched asset fields in canonical display order. A payload that is not
// XML at all (e.g. a JSON error object from a failed download) yields an
// empty result; an XML payload that cannot be parsed yields
// ErrMalformedDocument.
func ExtractAssets(content []byte) ([]AssetField, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil, nil
	}

	values := make(map[string]float64)

	decoder := xml.NewDecoder(bytes.NewReader(trimmed))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if _, watched := assetLabels[start.Name.Local]; !watched {
			continue
		}

		var text string
		if err := decoder.DecodeElement(&text, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		value, ok := parseNumber(text)
		if !ok || value == 0 {
			continue
		}

		// Same concept may be reported at multiple consolidation
		// levels; keep the largest magnitude.
		if current, exists := values[start.Name.Local]; !exists || math.Abs(value) > math.Abs(current) {
			values[start.Name.Local] = value
		}
	}

	fields := make([]AssetField, 0, len(values))
	for tag, value := range values {
		fields = append(fields, AssetField{
			Tag:   tag,
			Label: assetLabels[tag],
			Value: value,
		})
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return displayRank(fields[i].Tag) < displayRank(fields[j].Tag)
	})

	return fields, nil
}

// displayRank returns the canonical position of a tag, with unlisted tags
// ranked after every listed tag
func displayRank(tag string) int {
	for i, known := range displayOrder {
		if known == tag {
			return i
		}
	}
	return len(displayOrder)
}

// parseNumber converts a locale-tolerant numeric string to a float.
// Everything except digits, comma, period and minus is stripped and the
// comma is treated as a decimal separator.
func parseNumber(text string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ',' || r == '.' || r == '-':
			return r
		default:
			return -1
		}
	}, text)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
