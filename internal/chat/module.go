package chat

import (
	apphttp "concierge_backend/internal/http"
)

// Module wires the chat handler into the HTTP server.
type Module struct {
	handler *Handler
}

func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

func (m *Module) Name() string { return "chat" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Widget.POST("/chat/messages", m.handler.HandleMessage)
}
