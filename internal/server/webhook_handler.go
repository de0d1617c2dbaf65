package server

import (
	"encoding/xml"
	"net/http"
)

// twimlResponse is the minimal TwiML envelope the WhatsApp gateway
// expects back from a message webhook.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// newWhatsAppHandler handles POST /webhook/whatsapp. The gateway posts
// form-encoded From and Body fields and expects TwiML back. Errors are
// folded into an apologetic message so the guest never sees a raw 5xx.
func newWhatsAppHandler(deps Deps) http.HandlerFunc {
	log := deps.Logger.With("handler", "whatsapp_webhook")
	apology := deps.Config.Messages.WebhookApology

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTwiML(w, apology)
			return
		}

		from := r.PostFormValue("From")
		body := r.PostFormValue("Body")

		reply, err := deps.Router.HandleTurn(r.Context(), from, body)
		if err != nil {
			log.Error("Webhook turn failed", "from", from, "error", err)
			writeTwiML(w, apology)
			return
		}

		writeTwiML(w, reply)
	}
}

func writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(twimlResponse{Message: message})
}
