// Package extract turns raw chat text into structured entities via
// best-effort pattern matching. Extraction is pure: no I/O, no state.
package extract

import (
	"regexp"
	"strings"
)

// Vehicle holds an independently matched year/make/model. Any subset may be
// present; partial detection is expected and valid.
type Vehicle struct {
	Year  string
	Make  string
	Model string
}

// IsComplete reports whether all three vehicle fields were detected.
func (v Vehicle) IsComplete() bool {
	return v.Year != "" && v.Make != "" && v.Model != ""
}

// IsEmpty reports whether nothing vehicle-related was detected.
func (v Vehicle) IsEmpty() bool {
	return v.Year == "" && v.Make == "" && v.Model == ""
}

// Intents are boolean flags for detected customer intents. They are not
// mutually exclusive; one message can fire several.
type Intents struct {
	Pricing            bool
	OrderStatus        bool
	SpecialtyFilm      bool
	ColorChange        bool
	PaintProtection    bool
	CommercialGraphics bool
	DesignIssue        bool
	Bulk               bool
	Complaint          bool
}

// Any reports whether at least one intent fired.
func (i Intents) Any() bool {
	return i.Pricing || i.OrderStatus || i.SpecialtyFilm || i.ColorChange ||
		i.PaintProtection || i.CommercialGraphics || i.DesignIssue || i.Bulk || i.Complaint
}

// Entities is the full extraction result for one inbound message.
type Entities struct {
	Vehicle     Vehicle
	Email       string
	Phone       string
	OrderNumber string
	Intents     Intents
}

// Config holds the keyword and vehicle tables. It is loaded once at startup
// and injected, so tests can substitute their own tables.
type Config struct {
	Makes               []string
	PricingKeywords     []string
	OrderKeywords       []string
	SpecialtyKeywords   []string
	ColorChangeKeywords []string
	PPFKeywords         []string
	CommercialKeywords  []string
	DesignKeywords      []string
	BulkKeywords        []string
	ComplaintKeywords   []string
}

// Extractor matches entities against the configured tables.
type Extractor struct {
	cfg       Config
	makeRegex *regexp.Regexp
}

var (
	yearRegex  = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?1?[-.\s(]*\d{3}[-.\s)]*\d{3}[-.\s]*\d{4}\b`)
	// Prefix-tolerant: "order 12345", "ord# A-48213", "#12345", "order number WD-9912".
	orderRegex = regexp.MustCompile(`(?i)(?:\border(?:\s+number|\s+no\.?)?|\bord\b|#)[\s:#-]*([A-Za-z]{0,4}-?\d{3,12})\b`)
	tokenRegex = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9\-]*`)
)

// modelStopwords end the model-token scan after a make. Keeps "F-150" out of
// "F-150 how much to wrap".
var modelStopwords = map[string]bool{
	"how": true, "what": true, "whats": true, "much": true, "cost": true,
	"price": true, "wrap": true, "wrapped": true, "to": true, "for": true,
	"and": true, "with": true, "in": true, "please": true, "quote": true,
	"the": true, "a": true, "an": true, "is": true, "it": true, "my": true,
	"can": true, "do": true, "would": true, "need": true, "want": true,
}

// New creates an Extractor from the given tables.
func New(cfg Config) *Extractor {
	escaped := make([]string, 0, len(cfg.Makes))
	for _, m := range cfg.Makes {
		escaped = append(escaped, regexp.QuoteMeta(m))
	}
	pattern := `(?i)\b(` + strings.Join(escaped, "|") + `)\b`

	return &Extractor{
		cfg:       cfg,
		makeRegex: regexp.MustCompile(pattern),
	}
}

// Extract runs all entity patterns over the message. Each pattern is
// independent; leftmost match wins on ambiguity.
func (e *Extractor) Extract(text string) Entities {
	var result Entities

	result.Vehicle = e.extractVehicle(text)
	result.Email = emailRegex.FindString(text)

	var rawOrderMatch string
	if m := orderRegex.FindStringSubmatch(text); len(m) == 2 {
		rawOrderMatch = m[0]
		result.OrderNumber = strings.ToUpper(m[1])
	}

	// Phone detection excludes anything already matched as part of an email
	// or order number; a bare 10-digit run is enough.
	if phone := phoneRegex.FindString(stripMatched(text, result.Email, rawOrderMatch)); phone != "" {
		result.Phone = strings.TrimSpace(phone)
	}

	result.Intents = e.extractIntents(text)
	return result
}

func (e *Extractor) extractVehicle(text string) Vehicle {
	var v Vehicle

	v.Year = yearRegex.FindString(text)

	loc := e.makeRegex.FindStringIndex(text)
	if loc == nil {
		return v
	}
	v.Make = canonicalMake(text[loc[0]:loc[1]], e.cfg.Makes)

	// Model: the token(s) immediately after the make, stopping at the first
	// stopword or after two tokens.
	rest := text[loc[1]:]
	tokens := tokenRegex.FindAllString(rest, 3)
	var parts []string
	for _, tok := range tokens {
		if modelStopwords[strings.ToLower(tok)] || yearRegex.MatchString(tok) {
			break
		}
		parts = append(parts, tok)
		if len(parts) == 2 {
			break
		}
	}
	v.Model = strings.Join(parts, " ")

	return v
}

func (e *Extractor) extractIntents(text string) Intents {
	lower := strings.ToLower(text)

	return Intents{
		Pricing:            containsAny(lower, e.cfg.PricingKeywords),
		OrderStatus:        containsAny(lower, e.cfg.OrderKeywords),
		SpecialtyFilm:      containsAny(lower, e.cfg.SpecialtyKeywords),
		ColorChange:        containsAny(lower, e.cfg.ColorChangeKeywords),
		PaintProtection:    containsAny(lower, e.cfg.PPFKeywords),
		CommercialGraphics: containsAny(lower, e.cfg.CommercialKeywords),
		DesignIssue:        containsAny(lower, e.cfg.DesignKeywords),
		Bulk:               containsAny(lower, e.cfg.BulkKeywords),
		Complaint:          containsAny(lower, e.cfg.ComplaintKeywords),
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// canonicalMake returns the configured spelling for a matched make so
// downstream keys do not depend on the customer's casing.
func canonicalMake(matched string, makes []string) string {
	for _, m := range makes {
		if strings.EqualFold(m, matched) {
			return m
		}
	}
	return matched
}

func stripMatched(text string, matched ...string) string {
	for _, m := range matched {
		if m != "" {
			text = strings.Replace(text, m, "", 1)
		}
	}
	return text
}
