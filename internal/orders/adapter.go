// Package orders queries the external order-management system and maps its
// status codes onto the fixed label set used in replies.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
)

// Outcome distinguishes the three lookup results. Not-found is a customer
// answer ("double-check your number"); error is an adapter failure and must
// never be conflated with it.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// Status is the normalized order status label.
type Status string

const (
	StatusReceived     Status = "received"
	StatusInProduction Status = "in_production"
	StatusPrinted      Status = "printed"
	StatusShipped      Status = "shipped"
	StatusDelivered    Status = "delivered"
	StatusOnHold       Status = "on_hold"
	StatusUnknown      Status = "unknown"
)

// Lookup is the result of one order query.
type Lookup struct {
	Outcome     Outcome
	OrderNumber string
	Status      Status
	Summary     string
}

// PromptContext renders the lookup as a context block for the reply prompt.
// All three outcomes produce a coherent string so the reply never silently
// omits the requested information.
func (l Lookup) PromptContext() string {
	switch l.Outcome {
	case OutcomeFound:
		return fmt.Sprintf("Order %s status: %s. %s", l.OrderNumber, l.Status, l.Summary)
	case OutcomeNotFound:
		return fmt.Sprintf("Order %s was not found in our system. Ask the customer to double-check the order number.", l.OrderNumber)
	default:
		return fmt.Sprintf("The order system is temporarily unreachable; order %s could not be checked this time. Be honest about the hiccup and offer to check again shortly.", l.OrderNumber)
	}
}

// providerOrder is the closed shape of the provider's order payload. Unknown
// status codes map to StatusUnknown rather than passing through raw.
type providerOrder struct {
	OrderNumber string `json:"order_number"`
	StatusCode  string `json:"status_code"`
	ETA         string `json:"estimated_delivery,omitempty"`
}

// Adapter is the order-management HTTP client. It performs no retries; a
// transient failure surfaces as OutcomeError for that turn only.
type Adapter struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewAdapter creates the adapter. Returns nil if no base URL is configured;
// callers treat a nil adapter as "order lookups disabled".
func NewAdapter(cfg config.OrdersConfig, log *logger.Logger) *Adapter {
	if cfg.GetOrdersAPIURL() == "" {
		return nil
	}
	return &Adapter{
		baseURL: strings.TrimRight(cfg.GetOrdersAPIURL(), "/"),
		apiKey:  cfg.GetOrdersAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

var orderNumberJunk = regexp.MustCompile(`(?i)^(?:ORDER|ORD)?[-#\s]*`)

// NormalizeOrderNumber strips prefixes and separators so "ord# wd-9912" and
// "WD-9912" query the same record.
func NormalizeOrderNumber(raw string) string {
	cleaned := orderNumberJunk.ReplaceAllString(strings.TrimSpace(raw), "")
	return strings.ToUpper(strings.ReplaceAll(cleaned, " ", ""))
}

// Lookup normalizes the order number and queries the provider.
func (a *Adapter) Lookup(ctx context.Context, rawNumber string) Lookup {
	number := NormalizeOrderNumber(rawNumber)
	if a == nil {
		return Lookup{Outcome: OutcomeError, OrderNumber: number}
	}
	if number == "" {
		return Lookup{Outcome: OutcomeNotFound, OrderNumber: number}
	}

	url := fmt.Sprintf("%s/orders/%s", a.baseURL, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Lookup{Outcome: OutcomeError, OrderNumber: number}
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		a.log.Warn("order lookup failed", "order_number", number, "error", err)
		return Lookup{Outcome: OutcomeError, OrderNumber: number}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Lookup{Outcome: OutcomeNotFound, OrderNumber: number}
	case resp.StatusCode >= http.StatusBadRequest:
		a.log.Warn("order system returned error", "order_number", number, "status", resp.StatusCode)
		return Lookup{Outcome: OutcomeError, OrderNumber: number}
	}

	var order providerOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		a.log.Warn("order payload decode failed", "order_number", number, "error", err)
		return Lookup{Outcome: OutcomeError, OrderNumber: number}
	}

	status := mapStatusCode(order.StatusCode)
	return Lookup{
		Outcome:     OutcomeFound,
		OrderNumber: number,
		Status:      status,
		Summary:     summarize(status, order.ETA),
	}
}

// mapStatusCode converts provider codes to the fixed label set. The switch
// is exhaustive over documented provider codes; anything else is unknown.
func mapStatusCode(code string) Status {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "NEW", "RECEIVED", "CONFIRMED":
		return StatusReceived
	case "IN_PROD", "PRODUCTION", "PRINTING":
		return StatusInProduction
	case "PRINTED", "QA":
		return StatusPrinted
	case "SHIPPED", "IN_TRANSIT":
		return StatusShipped
	case "DELIVERED", "COMPLETE":
		return StatusDelivered
	case "HOLD", "ON_HOLD", "PAYMENT_HOLD":
		return StatusOnHold
	default:
		return StatusUnknown
	}
}

func summarize(status Status, eta string) string {
	switch status {
	case StatusShipped:
		if eta != "" {
			return "It is on the way, estimated delivery " + eta + "."
		}
		return "It is on the way."
	case StatusInProduction, StatusPrinted:
		return "It is moving through production."
	case StatusOnHold:
		return "It is on hold; a teammate will reach out."
	case StatusDelivered:
		return "It was delivered."
	case StatusReceived:
		return "We have it and production starts soon."
	default:
		return "Status details are being confirmed."
	}
}
