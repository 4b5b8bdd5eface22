package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awbFields() map[string]interface{} {
	return map[string]interface{}{
		"awb_number": "180-12345675",
		"weight_kg":  120.5,
		"shipper":    "Acme Exports Pty Ltd",
		"consignee":  "Globex Logistics GmbH",
	}
}

func resultFor(t *testing.T, results []Result, code string) Result {
	t.Helper()
	for _, r := range results {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("no result for rule %s", code)
	return Result{}
}

func TestEvaluateValidAWB(t *testing.T) {
	e := NewEngine("global-default", "v1")
	results, pack := e.Evaluate("global-default", "v1", "awb", awbFields())

	require.Equal(t, "global-default:v1", pack.Key())
	for _, r := range results {
		assert.True(t, r.Passed, "rule %s should pass: %s", r.Code, r.Message)
	}
}

func TestAWBFormatRule(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := awbFields()
	fields["awb_number"] = "123-INVALID"
	results, _ := e.Evaluate("global-default", "v1", "awb", fields)

	r := resultFor(t, results, "awb.format")
	assert.False(t, r.Passed)
	assert.Equal(t, "AWB format must be XXX-XXXXXXXX", r.Message)
	assert.Equal(t, SeverityHigh, r.Severity)
}

func TestWeightRule(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := awbFields()
	fields["weight_kg"] = -4.0
	results, _ := e.Evaluate("global-default", "v1", "awb", fields)

	r := resultFor(t, results, "shipment.weight")
	assert.False(t, r.Passed)
	assert.Equal(t, "Weight must be positive", r.Message)
	assert.Equal(t, SeverityMedium, r.Severity)
}

func TestWeightRuleCoercesStrings(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := awbFields()
	fields["weight_kg"] = "-5"
	results, _ := e.Evaluate("global-default", "v1", "awb", fields)

	r := resultFor(t, results, "shipment.weight")
	assert.False(t, r.Passed)
}

func TestWeightRuleSkippedWhenAbsent(t *testing.T) {
	e := NewEngine("global-default", "v1")

	results, _ := e.Evaluate("global-default", "v1", "fiar_invoice", map[string]interface{}{
		"hs_code": "850440",
	})
	for _, r := range results {
		assert.NotEqual(t, "shipment.weight", r.Code)
	}
}

func TestHSCodeRule(t *testing.T) {
	e := NewEngine("global-default", "v1")

	for _, tc := range []struct {
		hs     string
		passed bool
	}{
		{"850440", true},
		{"85044090", true},
		{"8504409000", true},
		{"85044", false},
		{"8504AB", false},
	} {
		results, _ := e.Evaluate("global-default", "v1", "fiar_invoice", map[string]interface{}{"hs_code": tc.hs})
		r := resultFor(t, results, "compliance.hs_code")
		assert.Equal(t, tc.passed, r.Passed, "hs_code %q", tc.hs)
	}
}

func TestSanctionsRule(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := awbFields()
	fields["consignee"] = "Restricted Trading Co"
	results, _ := e.Evaluate("global-default", "v1", "awb", fields)

	r := resultFor(t, results, "compliance.sanctions")
	assert.False(t, r.Passed)
	assert.Contains(t, r.Message, "Restricted Trading Co")
}

func TestSanctionsRuleScreensAllFields(t *testing.T) {
	e := NewEngine("global-default", "v1")

	// The restricted term is in the goods description, not a party name.
	results, _ := e.Evaluate("global-default", "v1", "awb", map[string]interface{}{
		"awb_number":  "180-12345675",
		"description": "restricted military equipment",
	})
	r := resultFor(t, results, "compliance.sanctions")
	assert.False(t, r.Passed)
	assert.Equal(t, SeverityHigh, r.Severity)
}

func TestSanctionsCheckerIsPluggable(t *testing.T) {
	e := NewEngine("global-default", "v1")
	e.SetSanctionsChecker(func(party string) bool {
		return strings.Contains(party, "Acme Exports")
	})

	results, _ := e.Evaluate("global-default", "v1", "awb", awbFields())
	r := resultFor(t, results, "compliance.sanctions")
	assert.False(t, r.Passed)
}

func TestNoApplicableRulesFailsRequiredFields(t *testing.T) {
	e := NewEngine("global-default", "v1")

	results, _ := e.Evaluate("global-default", "v1", "unclassified", map[string]interface{}{})
	require.Len(t, results, 1)
	assert.Equal(t, "generic.required_fields", results[0].Code)
	assert.False(t, results[0].Passed)
	assert.Equal(t, SeverityHigh, results[0].Severity)
}

func TestHSCodeSeverityIsHigh(t *testing.T) {
	e := NewEngine("global-default", "v1")

	results, _ := e.Evaluate("global-default", "v1", "fiar_invoice", map[string]interface{}{"hs_code": "85044"})
	r := resultFor(t, results, "compliance.hs_code")
	assert.False(t, r.Passed)
	assert.Equal(t, SeverityHigh, r.Severity)
}

func TestUnknownPackFallsBackSilently(t *testing.T) {
	e := NewEngine("global-default", "v1")

	results, pack := e.Evaluate("no-such-pack", "v9", "awb", awbFields())
	assert.Equal(t, "global-default:v1", pack.Key())
	assert.NotEmpty(t, results)
}

func TestAustraliaExportPack(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := awbFields()
	fields["destination_country"] = "IR"
	results, pack := e.Evaluate("australia-export", "v1", "awb", fields)

	assert.Equal(t, "australia-export:v1", pack.Key())
	r := resultFor(t, results, "aeca.restricted_destination")
	assert.False(t, r.Passed)

	fields["destination_country"] = "DE"
	results, _ = e.Evaluate("australia-export", "v1", "awb", fields)
	assert.True(t, resultFor(t, results, "aeca.restricted_destination").Passed)
	assert.True(t, resultFor(t, results, "aeca.destination").Passed)
}

func TestAustraliaExportRequiresDestination(t *testing.T) {
	e := NewEngine("global-default", "v1")

	results, _ := e.Evaluate("australia-export", "v1", "awb", awbFields())
	r := resultFor(t, results, "aeca.destination")
	assert.False(t, r.Passed)
}

func TestDGIATAPack(t *testing.T) {
	e := NewEngine("global-default", "v1")

	fields := map[string]interface{}{
		"un_number":     "UN1203",
		"packing_group": "II",
	}
	results, _ := e.Evaluate("dg-iata", "v1", "dg_declaration", fields)
	assert.True(t, resultFor(t, results, "dg.un_number").Passed)
	assert.True(t, resultFor(t, results, "dg.packing_group").Passed)

	fields["un_number"] = "1203"
	fields["packing_group"] = "IV"
	results, _ = e.Evaluate("dg-iata", "v1", "dg_declaration", fields)
	assert.False(t, resultFor(t, results, "dg.un_number").Passed)
	assert.False(t, resultFor(t, results, "dg.packing_group").Passed)
}

func TestQualifiedCode(t *testing.T) {
	pack := &Pack{ID: "global-default", Version: "v1"}
	assert.Equal(t, "awb.format@global-default:v1", QualifiedCode("awb.format", pack))
}

func TestFieldNumberCoercion(t *testing.T) {
	fields := map[string]interface{}{"a": "12.5", "b": 3, "c": int64(4), "d": "x"}

	v, ok := fieldNumber(fields, "a")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = fieldNumber(fields, "d")
	assert.False(t, ok)

	v, ok = fieldNumber(fields, "b")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}
