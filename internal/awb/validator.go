// Package awb handles air waybill validation and carrier submission.
package awb

import "regexp"

var formatRe = regexp.MustCompile(`^\d{3}-\d{8}$`)

type Shipment struct {
	AWBNumber string  `json:"awb_number"`
	WeightKg  float64 `json:"weight_kg"`
	Shipper   string  `json:"shipper"`
	Consignee string  `json:"consignee"`
	Carrier   string  `json:"carrier"`
}

// ValidationOutcome always carries a messages array on the wire; a valid
// shipment serializes it as [].
type ValidationOutcome struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages"`
}

// Validate checks the waybill number format and the weight.
func Validate(s Shipment) ValidationOutcome {
	msgs := []string{}
	if !formatRe.MatchString(s.AWBNumber) {
		msgs = append(msgs, "AWB format must be XXX-XXXXXXXX")
	}
	if s.WeightKg <= 0 {
		msgs = append(msgs, "Weight must be positive")
	}
	return ValidationOutcome{Valid: len(msgs) == 0, Messages: msgs}
}
