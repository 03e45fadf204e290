package handler

import "net/http"

// MessageHandler serves the liveness probe.
type MessageHandler struct{}

func NewMessageHandler() *MessageHandler { return &MessageHandler{} }

func (h *MessageHandler) Hello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Hello mga bisaya"})
}
