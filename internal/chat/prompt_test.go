package chat

import (
	"strings"
	"testing"

	"concierge_backend/internal/extract"
	"concierge_backend/internal/orders"
)

func TestComposeAlwaysCarriesPolicy(t *testing.T) {
	c := NewComposer("Apex Wraps", "")
	prompt := c.Compose(PromptContext{})

	if !strings.Contains(prompt, "Apex Wraps") {
		t.Fatal("prompt must name the brand")
	}
	if !strings.Contains(prompt, "Never invent or estimate a price") {
		t.Fatal("prompt must carry the pricing policy")
	}
}

func TestComposePricedBlock(t *testing.T) {
	c := NewComposer("Apex Wraps", "")
	prompt := c.Compose(PromptContext{Priced: true, PriceSqft: 250, PriceCost: 1318})

	if !strings.Contains(prompt, "$1318") || !strings.Contains(prompt, "250 sq ft") {
		t.Fatalf("priced prompt missing figures: %s", prompt)
	}
}

func TestComposeBlockedBlockForbidsPricing(t *testing.T) {
	c := NewComposer("Apex Wraps", "")
	prompt := c.Compose(PromptContext{PriceBlocked: true, BlockedVehicle: "Yugo GV"})

	if !strings.Contains(prompt, "Do NOT state any price") {
		t.Fatal("blocked prompt must forbid pricing")
	}
	if !strings.Contains(prompt, "Yugo GV") {
		t.Fatal("blocked prompt should name the vehicle")
	}
	if !strings.Contains(prompt, "confirm the exact year, make, and model") {
		t.Fatalf("blocked prompt must ask for vehicle confirmation: %s", prompt)
	}
}

func TestComposeBlockedBlockOffersEstimator(t *testing.T) {
	c := NewComposer("Apex Wraps", "https://apexwraps.example/estimator")
	prompt := c.Compose(PromptContext{PriceBlocked: true, BlockedVehicle: "Yugo GV"})

	if !strings.Contains(prompt, "https://apexwraps.example/estimator") {
		t.Fatalf("blocked prompt should offer the estimator link: %s", prompt)
	}

	bare := NewComposer("Apex Wraps", "").Compose(PromptContext{PriceBlocked: true})
	if strings.Contains(bare, "estimator at") {
		t.Fatal("no estimator line when the URL is not configured")
	}
}

func TestComposeEmailReminderOnlyWhenPricedWithoutEmail(t *testing.T) {
	c := NewComposer("Apex Wraps", "")

	withReminder := c.Compose(PromptContext{Priced: true, PriceCost: 1318, PriceSqft: 250})
	if !strings.Contains(withReminder, "no email on file") {
		t.Fatal("expected email reminder when priced without email")
	}

	captured := c.Compose(PromptContext{Priced: true, PriceCost: 1318, PriceSqft: 250, EmailCaptured: true})
	if strings.Contains(captured, "no email on file") {
		t.Fatal("no reminder once the email is captured")
	}

	unpriced := c.Compose(PromptContext{})
	if strings.Contains(unpriced, "no email on file") {
		t.Fatal("no reminder before a price was given")
	}
}

func TestComposeOrderBlock(t *testing.T) {
	c := NewComposer("Apex Wraps", "")
	lookup := &orders.Lookup{Outcome: orders.OutcomeNotFound, OrderNumber: "WD-1"}
	prompt := c.Compose(PromptContext{Order: lookup})

	if !strings.Contains(prompt, "ORDER STATUS") || !strings.Contains(prompt, "double-check") {
		t.Fatalf("order block missing: %s", prompt)
	}
}

func TestComposeSpecialtyGuidance(t *testing.T) {
	c := NewComposer("Apex Wraps", "")
	prompt := c.Compose(PromptContext{Intents: extract.Intents{SpecialtyFilm: true, PaintProtection: true}})

	if !strings.Contains(prompt, "Specialty films") || !strings.Contains(prompt, "Paint protection film") {
		t.Fatalf("specialty guidance missing: %s", prompt)
	}
}
