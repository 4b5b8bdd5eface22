// Package rules evaluates validation rule packs against extracted document
// fields. Packs are versioned; tenants select a pack via configuration and
// unknown packs silently fall back to the engine default.
package rules

import (
	"fmt"
	"log"
	"strconv"
)

// Severity levels, ordered.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Result is one rule evaluation outcome.
type Result struct {
	Code     string `json:"code"`
	Passed   bool   `json:"passed"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Rule evaluates one constraint. Evaluate returns nil when the rule does not
// apply to the given document.
type Rule struct {
	Code     string
	Severity string
	Evaluate func(e *Engine, docType string, fields map[string]interface{}) *Result
}

// Pack is a named, versioned ordered rule list.
type Pack struct {
	ID      string
	Version string
	Rules   []Rule
}

// Key is how packs are addressed in the registry.
func (p *Pack) Key() string {
	return p.ID + ":" + p.Version
}

// SanctionsChecker flags text for sanctions screening. It receives either a
// single value or a whole document's field values joined together, so
// implementations must match on substrings. The default is a keyword
// heuristic; production deployments plug in a screening provider.
type SanctionsChecker func(text string) bool

// Engine holds the pack registry and the default pack used when an unknown
// pack is requested.
type Engine struct {
	packs          map[string]*Pack
	defaultID      string
	defaultVersion string
	sanctions      SanctionsChecker
	logger         *log.Logger
}

// NewEngine builds an engine with the built-in packs registered and the
// given pack as the fallback default.
func NewEngine(defaultID, defaultVersion string) *Engine {
	e := &Engine{
		packs:          make(map[string]*Pack),
		defaultID:      defaultID,
		defaultVersion: defaultVersion,
		sanctions:      DefaultSanctionsChecker,
		logger:         log.New(log.Writer(), "[RULES] ", log.LstdFlags),
	}
	for _, p := range builtinPacks() {
		e.Register(p)
	}
	return e
}

// SetSanctionsChecker replaces the sanctions screening hook.
func (e *Engine) SetSanctionsChecker(fn SanctionsChecker) {
	if fn != nil {
		e.sanctions = fn
	}
}

// Register adds or replaces a pack.
func (e *Engine) Register(p *Pack) {
	e.packs[p.Key()] = p
}

// Lookup resolves (packID, version), falling back to the default pack when
// the requested one is not registered. The fallback is silent by contract;
// a misconfigured tenant still gets validated.
func (e *Engine) Lookup(packID, version string) *Pack {
	if p, ok := e.packs[packID+":"+version]; ok {
		return p
	}
	return e.packs[e.defaultID+":"+e.defaultVersion]
}

// Evaluate runs the pack's rules in order against the fields. When no rule
// applies, a single failing generic.required_fields result is returned so a
// document never validates vacuously. The returned pack is the one actually
// used after fallback.
func (e *Engine) Evaluate(packID, version, docType string, fields map[string]interface{}) ([]Result, *Pack) {
	pack := e.Lookup(packID, version)
	if pack == nil {
		// No default registered either; treat as required-fields failure.
		return []Result{requiredFieldsFailure()}, &Pack{ID: packID, Version: version}
	}

	var results []Result
	for _, rule := range pack.Rules {
		if r := rule.Evaluate(e, docType, fields); r != nil {
			results = append(results, *r)
		}
	}

	if len(results) == 0 {
		results = append(results, requiredFieldsFailure())
	}
	return results, pack
}

func requiredFieldsFailure() Result {
	return Result{
		Code:     "generic.required_fields",
		Passed:   false,
		Severity: SeverityHigh,
		Message:  "no recognizable fields present for validation",
	}
}

// QualifiedCode is the persisted rule code form: "{code}@{pack}:{version}".
func QualifiedCode(code string, pack *Pack) string {
	return fmt.Sprintf("%s@%s:%s", code, pack.ID, pack.Version)
}

// ---- field coercion helpers ----

func fieldString(fields map[string]interface{}, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func fieldNumber(fields map[string]interface{}, key string) (float64, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
