package session

import (
	"github.com/hoteldesk/conciergebot/internal/database"
)

// ActiveHotelFromHistory derives the hotel context a user had when the
// process last saw them. Given history entries newest-first, it returns
// the hotel tag of the most recent entry, or false when the user has no
// history or their latest turn was recorded without a context.
//
// Session state is deliberately not persisted on its own; this function
// is the whole reconstruction story after a restart.
func ActiveHotelFromHistory(newestFirst []database.HistoryEntry) (string, bool) {
	if len(newestFirst) == 0 {
		return "", false
	}
	hotel := newestFirst[0].Hotel
	if hotel == "" || hotel == database.NoHotel {
		return "", false
	}
	return hotel, true
}
