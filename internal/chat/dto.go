package chat

// MessageRequest is the widget's inbound payload. Only the session key and
// the message text are required; the rest is page context for the record.
type MessageRequest struct {
	SessionID      string `json:"session_id" validate:"required"`
	MessageText    string `json:"message_text" validate:"required"`
	PageURL        string `json:"page_url"`
	Referrer       string `json:"referrer"`
	Geo            string `json:"geo"`
	OrganizationID string `json:"organization_id"`
	Mode           string `json:"mode"`
}

// ExtractedDTO mirrors what the extractor found in this message.
type ExtractedDTO struct {
	VehicleYear  string `json:"vehicle_year,omitempty"`
	VehicleMake  string `json:"vehicle_make,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	OrderNumber  string `json:"order_number,omitempty"`
}

// PricingDTO reports the computed estimate, or that pricing was blocked for
// an unrecognized model.
type PricingDTO struct {
	Blocked bool    `json:"blocked"`
	Sqft    float64 `json:"sqft,omitempty"`
	Cost    int64   `json:"cost,omitempty"`
}

// OrderStatusDTO reports the order lookup outcome for this turn.
type OrderStatusDTO struct {
	Outcome     string `json:"outcome"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status,omitempty"`
}

// MessageResponse is the widget's reply envelope.
type MessageResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	Agent          string          `json:"agent"`
	ConversationID string          `json:"conversation_id"`
	Extracted      *ExtractedDTO   `json:"extracted,omitempty"`
	Pricing        *PricingDTO     `json:"pricing,omitempty"`
	OrderStatus    *OrderStatusDTO `json:"order_status,omitempty"`
}
