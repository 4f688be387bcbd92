package chat

import (
	"fmt"
	"strings"

	"concierge_backend/internal/extract"
	"concierge_backend/internal/orders"
)

// Composer assembles the bounded system prompt for one turn: a fixed
// safety and brand policy plus contextual blocks derived from this turn's
// extraction, pricing, and order lookup results.
type Composer struct {
	brandName    string
	estimatorURL string
}

func NewComposer(brandName, estimatorURL string) *Composer {
	return &Composer{brandName: brandName, estimatorURL: estimatorURL}
}

// PromptContext carries the per-turn signals the composer turns into
// prompt blocks.
type PromptContext struct {
	Intents        extract.Intents
	Priced         bool
	PriceSqft      float64
	PriceCost      int64
	PriceBlocked   bool
	BlockedVehicle string
	Order          *orders.Lookup
	EmailCaptured  bool
	QuoteSent      bool
}

// Compose renders the system prompt. Every block states facts the model may
// repeat; pricing numbers never come from anywhere else.
func (c *Composer) Compose(pc PromptContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are the online sales concierge for %s, a vehicle wrap shop.
Be warm, concise, and concrete. Answer in at most three short sentences.

Rules you must never break:
- Never invent or estimate a price yourself. Only quote the exact price given in the PRICING block below, if present.
- Never claim an email, quote, or escalation was sent unless this prompt says it was.
- Never ask for payment details in chat.
- If you do not know something, say so and offer to connect the customer with the team.`, c.brandName)

	if pc.Priced {
		b.WriteString("\n\nPRICING: The estimate for the customer's vehicle is ")
		fmt.Fprintf(&b, "$%d for roughly %.0f sq ft of coverage. Share this number plainly.", pc.PriceCost, pc.PriceSqft)
	}
	if pc.PriceBlocked {
		b.WriteString("\n\nPRICING: We do not have wrap dimensions on file for ")
		if pc.BlockedVehicle != "" {
			b.WriteString(pc.BlockedVehicle)
		} else {
			b.WriteString("this vehicle")
		}
		b.WriteString(". Do NOT state any price. Ask the customer to confirm the exact year, make, and model so we can match it against our dimension sheet.")
		if c.estimatorURL != "" {
			fmt.Fprintf(&b, " You may point them at our self-serve estimator at %s for a ballpark in the meantime.", c.estimatorURL)
		}
		b.WriteString(" Ask for their email so a teammate can follow up with an exact figure.")
	}

	if pc.Order != nil {
		b.WriteString("\n\nORDER STATUS: ")
		b.WriteString(pc.Order.PromptContext())
	}

	if pc.Priced && !pc.EmailCaptured {
		b.WriteString("\n\nEMAIL: The customer has seen a price but we have no email on file. Politely ask for their email address so we can send the written estimate.")
	}
	if pc.QuoteSent {
		b.WriteString("\n\nQUOTE: The written estimate was emailed to the customer just now. You may confirm it is in their inbox.")
	}

	if guidance := specialtyGuidance(pc.Intents); guidance != "" {
		b.WriteString("\n\nPRODUCT GUIDANCE: ")
		b.WriteString(guidance)
	}

	return b.String()
}

func specialtyGuidance(in extract.Intents) string {
	var notes []string
	if in.SpecialtyFilm {
		notes = append(notes, "Specialty films (chrome, color-shift, textured) are premium products; mention they run above standard wrap pricing and need an in-person consult.")
	}
	if in.ColorChange {
		notes = append(notes, "Color-change wraps are our core service; highlight finish options (gloss, satin, matte).")
	}
	if in.PaintProtection {
		notes = append(notes, "Paint protection film is quoted separately from color wraps; offer to book an assessment.")
	}
	if in.CommercialGraphics {
		notes = append(notes, "Commercial and fleet graphics include design and installation; a teammate prepares those quotes.")
	}
	return strings.Join(notes, " ")
}
