package session

import (
	"fmt"

	"github.com/hoteldesk/conciergebot/internal/conversation"
	"github.com/hoteldesk/conciergebot/internal/database"
)

// RefusalSentence is the exact reply the model is instructed to give to
// any question outside the scope of the active hotel.
const RefusalSentence = `I'm sorry, I can only assist with inquiries related to %s and its services. How can I help you with your stay today?`

// primerFormat is the system instruction seeded at context start. The
// format string expects: hotel name, details block, and the hotel name
// twice more for the scoping instruction and refusal sentence.
const primerFormat = `You are a polite, professional, and highly specialized hotel concierge for %s. Your sole purpose is to assist guests exclusively with inquiries directly related to the hotel and its services.

Hotel Information:
%s

Strict Instruction:
You MUST only answer questions that fall within the scope of a hotel concierge for %s, specifically covering the details provided above. If a user asks about anything else (personal opinions, general knowledge, news, other businesses, politics, or any topic unrelated to the hotel's services), you must respond with the following exact phrase and nothing more:

"` + RefusalSentence + `"`

// selectionPromptFormat is the synthetic turn sent once when a guest
// selects a hotel; the model's answer becomes the opening reply.
const selectionPromptFormat = `A guest has selected %s and is ready to chat. Greet them warmly in one or two sentences and offer your assistance with their stay.`

// buildPrimer renders the system primer for a hotel.
func buildPrimer(hotel *database.Hotel) conversation.Turn {
	text := fmt.Sprintf(primerFormat, hotel.HotelName, hotel.Details, hotel.HotelName, hotel.HotelName)
	return conversation.Turn{Role: conversation.RoleSystem, Text: text}
}

// selectionPrompt renders the synthetic opening turn for a hotel.
func selectionPrompt(hotelName string) string {
	return fmt.Sprintf(selectionPromptFormat, hotelName)
}

// historyTurns converts persisted history rows, given oldest-first, into
// alternating user/model context turns.
func historyTurns(entries []database.HistoryEntry) []conversation.Turn {
	turns := make([]conversation.Turn, 0, len(entries)*2)
	for _, e := range entries {
		turns = append(turns,
			conversation.Turn{Role: conversation.RoleUser, Text: e.UserMessage},
			conversation.Turn{Role: conversation.RoleModel, Text: e.BotResponse},
		)
	}
	return turns
}
