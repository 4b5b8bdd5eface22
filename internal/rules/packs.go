package rules

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	awbFormatRe = regexp.MustCompile(`^\d{3}-\d{8}$`)
	unNumberRe  = regexp.MustCompile(`^UN\d+$`)
	countryRe   = regexp.MustCompile(`^[A-Z]{2}$`)
)

// restrictedDestinations is the built-in export denylist for the
// australia-export pack.
var restrictedDestinations = map[string]bool{
	"IR": true,
	"KP": true,
	"SY": true,
}

var validPackingGroups = map[string]bool{"I": true, "II": true, "III": true}

// DefaultSanctionsChecker is a substring heuristic over screening text.
func DefaultSanctionsChecker(text string) bool {
	p := strings.ToLower(text)
	return strings.Contains(p, "restricted") || strings.Contains(p, "sanctioned")
}

func builtinPacks() []*Pack {
	base := baseRules()

	globalDefault := &Pack{ID: "global-default", Version: "v1", Rules: base}

	australiaExport := &Pack{
		ID:      "australia-export",
		Version: "v1",
		Rules: append(append([]Rule{}, base...),
			Rule{
				Code:     "aeca.destination",
				Severity: SeverityHigh,
				Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
					dest, ok := fieldString(fields, "destination_country")
					if !ok || dest == "" {
						return &Result{
							Code: "aeca.destination", Passed: false, Severity: SeverityHigh,
							Message: "destination_country is required for export documents",
						}
					}
					if !countryRe.MatchString(dest) {
						return &Result{
							Code: "aeca.destination", Passed: false, Severity: SeverityHigh,
							Message: fmt.Sprintf("destination_country %q is not a two-letter country code", dest),
						}
					}
					return &Result{Code: "aeca.destination", Passed: true, Severity: SeverityHigh}
				},
			},
			Rule{
				Code:     "aeca.restricted_destination",
				Severity: SeverityHigh,
				Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
					dest, ok := fieldString(fields, "destination_country")
					if !ok || dest == "" {
						return nil
					}
					if restrictedDestinations[strings.ToUpper(dest)] {
						return &Result{
							Code: "aeca.restricted_destination", Passed: false, Severity: SeverityHigh,
							Message: fmt.Sprintf("destination %s is on the restricted list", dest),
						}
					}
					return &Result{Code: "aeca.restricted_destination", Passed: true, Severity: SeverityHigh}
				},
			},
		),
	}

	dgIATA := &Pack{
		ID:      "dg-iata",
		Version: "v1",
		Rules: append(append([]Rule{}, base...),
			Rule{
				Code:     "dg.un_number",
				Severity: SeverityHigh,
				Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
					un, ok := fieldString(fields, "un_number")
					if !ok {
						return nil
					}
					if !unNumberRe.MatchString(un) {
						return &Result{
							Code: "dg.un_number", Passed: false, Severity: SeverityHigh,
							Message: fmt.Sprintf("UN number %q must match UN followed by digits", un),
						}
					}
					return &Result{Code: "dg.un_number", Passed: true, Severity: SeverityHigh}
				},
			},
			Rule{
				Code:     "dg.packing_group",
				Severity: SeverityHigh,
				Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
					pg, ok := fieldString(fields, "packing_group")
					if !ok {
						return nil
					}
					if !validPackingGroups[pg] {
						return &Result{
							Code: "dg.packing_group", Passed: false, Severity: SeverityHigh,
							Message: fmt.Sprintf("packing group %q must be I, II or III", pg),
						}
					}
					return &Result{Code: "dg.packing_group", Passed: true, Severity: SeverityHigh}
				},
			},
		),
	}

	return []*Pack{globalDefault, australiaExport, dgIATA}
}

// baseRules are shared by every pack, evaluated in this order.
func baseRules() []Rule {
	return []Rule{
		{
			Code:     "awb.format",
			Severity: SeverityHigh,
			Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
				if docType != "awb" {
					return nil
				}
				awb, _ := fieldString(fields, "awb_number")
				if !awbFormatRe.MatchString(awb) {
					return &Result{
						Code: "awb.format", Passed: false, Severity: SeverityHigh,
						Message: "AWB format must be XXX-XXXXXXXX",
					}
				}
				return &Result{Code: "awb.format", Passed: true, Severity: SeverityHigh}
			},
		},
		{
			Code:     "shipment.weight",
			Severity: SeverityMedium,
			Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
				if _, present := fields["weight_kg"]; !present {
					return nil
				}
				w, ok := fieldNumber(fields, "weight_kg")
				if !ok || w <= 0 {
					return &Result{
						Code: "shipment.weight", Passed: false, Severity: SeverityMedium,
						Message: "Weight must be positive",
					}
				}
				return &Result{Code: "shipment.weight", Passed: true, Severity: SeverityMedium}
			},
		},
		{
			Code:     "compliance.hs_code",
			Severity: SeverityHigh,
			Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
				hs, ok := fieldString(fields, "hs_code")
				if !ok {
					return nil
				}
				if !isDigits(hs) || (len(hs) != 6 && len(hs) != 8 && len(hs) != 10) {
					return &Result{
						Code: "compliance.hs_code", Passed: false, Severity: SeverityHigh,
						Message: "HS code must be 6, 8 or 10 digits",
					}
				}
				return &Result{Code: "compliance.hs_code", Passed: true, Severity: SeverityHigh}
			},
		},
		{
			// Screens the concatenation of every field value, not just the
			// named parties, so restricted terms buried in descriptions or
			// routing fields still trip.
			Code:     "compliance.sanctions",
			Severity: SeverityHigh,
			Evaluate: func(e *Engine, docType string, fields map[string]interface{}) *Result {
				if len(fields) == 0 {
					return nil
				}
				var values []string
				for _, v := range fields {
					values = append(values, fmt.Sprintf("%v", v))
				}
				if e.sanctions(strings.Join(values, " ")) {
					flagged := values[0]
					for _, v := range values {
						if e.sanctions(v) {
							flagged = v
							break
						}
					}
					return &Result{
						Code: "compliance.sanctions", Passed: false, Severity: SeverityHigh,
						Message: fmt.Sprintf("%q flagged by sanctions screening", flagged),
					}
				}
				return &Result{Code: "compliance.sanctions", Passed: true, Severity: SeverityHigh}
			},
		},
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
