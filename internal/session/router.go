package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hoteldesk/conciergebot/internal/conversation"
	"github.com/hoteldesk/conciergebot/internal/database"
)

// resetPhrases trigger a context reset when they appear anywhere in an
// inbound message (substring containment, case-insensitive). Note the
// asymmetry with hotel selection, which requires an anchored
// whole-string match; both behaviors are deliberate, see DESIGN.md.
var resetPhrases = []string{
	"change hotel",
	"different hotel",
	"try another hotel",
	"switch hotel",
	"reset hotel",
	"choose hotel again",
}

// DefaultManualModeReply is sent in place of a model reply for users
// whose automated replies have been switched off by an operator.
const DefaultManualModeReply = "Thank you for your message. The admin will respond shortly."

// DefaultHotelListHeader introduces the catalog listing sent while no
// hotel context is selected.
const DefaultHotelListHeader = "Please choose one of our hotels by sending its name:"

// Options tunes router behavior; zero values fall back to defaults.
type Options struct {
	// HistoryPrimerLimit caps how many recent history rows are folded
	// into the primer when a context is (re)established. Defaults to 5.
	HistoryPrimerLimit int
	// ManualModeReply overrides DefaultManualModeReply.
	ManualModeReply string
	// HotelListHeader overrides DefaultHotelListHeader.
	HotelListHeader string
}

// Router classifies each inbound (user, text) pair into exactly one
// action and drives the corresponding side effects: manual-mode
// passthrough, hotel selection, context reset, or a model turn.
type Router struct {
	logger       *slog.Logger
	store        database.Store
	registry     *Registry
	historyLimit int
	manualReply  string
	listHeader   string
}

// NewRouter wires a router to its collaborators.
func NewRouter(logger *slog.Logger, store database.Store, registry *Registry, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryPrimerLimit <= 0 {
		opts.HistoryPrimerLimit = 5
	}
	if opts.ManualModeReply == "" {
		opts.ManualModeReply = DefaultManualModeReply
	}
	if opts.HotelListHeader == "" {
		opts.HotelListHeader = DefaultHotelListHeader
	}
	return &Router{
		logger:       logger.With("component", "session_router"),
		store:        store,
		registry:     registry,
		historyLimit: opts.HistoryPrimerLimit,
		manualReply:  opts.ManualModeReply,
		listHeader:   opts.HotelListHeader,
	}
}

// HandleTurn processes one inbound message and returns the reply text.
// Errors are ErrEmptyMessage, ErrUnavailable, or wrap ErrModel; every
// returned reply has already had its persistence side effects attempted.
func (r *Router) HandleTurn(ctx context.Context, username, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if r.store == nil || r.registry == nil || !r.registry.HasModel() {
		return "", ErrUnavailable
	}
	if username == "" {
		username = "guest"
	}

	log := r.logger.With("username", username)

	user, err := r.store.GetUser(ctx, username)
	if err != nil {
		return "", fmt.Errorf("%w: user lookup failed: %v", ErrUnavailable, err)
	}

	// Manual mode bypasses the state machine and the model entirely.
	if user != nil && !user.AIEnabled {
		log.InfoContext(ctx, "Manual mode active, returning placeholder reply")
		hotel := database.NoHotel
		if sess, ok := r.registry.Peek(username); ok {
			sess.mu.Lock()
			if sess.Hotel != "" {
				hotel = sess.Hotel
			}
			sess.mu.Unlock()
		}
		r.recordTurn(ctx, username, hotel, trimmed, r.manualReply)
		return r.manualReply, nil
	}

	sess := r.registry.Acquire(username)
	defer sess.mu.Unlock()

	if err := r.rehydrate(ctx, sess); err != nil {
		return "", err
	}

	var reply string
	if sess.Hotel == "" {
		reply, err = r.handleNoContext(ctx, sess, trimmed)
	} else {
		reply, err = r.handleActive(ctx, sess, trimmed)
	}
	if err != nil {
		return "", err
	}

	sess.LastActive = time.Now().UTC()
	return reply, nil
}

// rehydrate reconstructs the active hotel from persisted history the
// first time a user is seen by this process. It never calls the model:
// the primer and recent turns are seeded silently so the next model
// turn carries a coherent transcript.
func (r *Router) rehydrate(ctx context.Context, sess *Session) error {
	if sess.rehydrated || sess.Hotel != "" {
		sess.rehydrated = true
		return nil
	}
	sess.rehydrated = true

	recent, err := r.store.GetRecentHistory(ctx, sess.Username, r.historyLimit)
	if err != nil {
		return fmt.Errorf("%w: history lookup failed: %v", ErrUnavailable, err)
	}

	name, ok := ActiveHotelFromHistory(recent)
	if !ok {
		return nil
	}

	hotel, err := r.store.FindHotelByName(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: hotel lookup failed: %v", ErrUnavailable, err)
	}
	if hotel == nil {
		// The hotel left the catalog since the user's last visit; start over.
		r.logger.WarnContext(ctx, "Persisted hotel context no longer in catalog", "username", sess.Username, "hotel", name)
		return nil
	}

	r.primeEngine(sess, hotel, recent)
	sess.Hotel = hotel.HotelName
	r.logger.InfoContext(ctx, "Session rehydrated from history", "username", sess.Username, "hotel", hotel.HotelName)
	return nil
}

// handleNoContext treats the inbound text as a hotel selection attempt.
func (r *Router) handleNoContext(ctx context.Context, sess *Session, text string) (string, error) {
	hotel, err := r.store.FindHotelByName(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: hotel lookup failed: %v", ErrUnavailable, err)
	}

	if hotel == nil {
		// Not a known hotel name: list the catalog. Browsing turns are
		// not recorded in history.
		return r.hotelListReply(ctx)
	}

	recent, err := r.store.GetRecentHistory(ctx, sess.Username, r.historyLimit)
	if err != nil {
		return "", fmt.Errorf("%w: history lookup failed: %v", ErrUnavailable, err)
	}

	r.primeEngine(sess, hotel, recent)
	sess.Hotel = hotel.HotelName

	// The selection message is consumed entirely as a selection; the
	// model is invoked once with a synthetic prompt to open the chat.
	opening, err := sess.Engine.Predict(ctx, selectionPrompt(hotel.HotelName))
	if err != nil {
		return "", r.classifyModelErr(err)
	}

	r.logger.InfoContext(ctx, "Hotel context activated", "username", sess.Username, "hotel", hotel.HotelName)
	r.recordTurn(ctx, sess.Username, hotel.HotelName, text, opening)
	return opening, nil
}

// handleActive forwards the turn to the model unless it asks for a reset.
func (r *Router) handleActive(ctx context.Context, sess *Session, text string) (string, error) {
	if containsResetPhrase(text) {
		sess.Engine.Reset()
		previous := sess.Hotel
		sess.Hotel = ""
		r.logger.InfoContext(ctx, "Hotel context reset", "username", sess.Username, "previous_hotel", previous)

		reply, err := r.hotelListReply(ctx)
		if err != nil {
			return "", err
		}
		r.recordTurn(ctx, sess.Username, database.NoHotel, text, reply)
		return reply, nil
	}

	reply, err := sess.Engine.Predict(ctx, text)
	if err != nil {
		return "", r.classifyModelErr(err)
	}

	r.recordTurn(ctx, sess.Username, sess.Hotel, text, reply)
	return reply, nil
}

// primeEngine clears the session's memory and reseeds it with the hotel
// primer plus up to the configured number of recent history rows,
// oldest-to-newest.
func (r *Router) primeEngine(sess *Session, hotel *database.Hotel, recentNewestFirst []database.HistoryEntry) {
	turns := []conversation.Turn{buildPrimer(hotel)}

	oldestFirst := make([]database.HistoryEntry, len(recentNewestFirst))
	for i, e := range recentNewestFirst {
		oldestFirst[len(recentNewestFirst)-1-i] = e
	}
	turns = append(turns, historyTurns(oldestFirst)...)

	sess.Engine.Reset()
	sess.Engine.Prime(turns)
}

// hotelListReply enumerates the catalog, one name per line.
func (r *Router) hotelListReply(ctx context.Context) (string, error) {
	names, err := r.store.ListHotelNames(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: hotel catalog unavailable: %v", ErrUnavailable, err)
	}

	var b strings.Builder
	b.WriteString(r.listHeader)
	for _, name := range names {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return b.String(), nil
}

// recordTurn persists the history entry and registry update for a turn.
// Failures are logged and swallowed: the reply has already been
// computed, and responsiveness wins over durability here.
func (r *Router) recordTurn(ctx context.Context, username, hotel, userMessage, botResponse string) {
	now := time.Now().UTC()

	entry := &database.HistoryEntry{
		Username:    username,
		Hotel:       hotel,
		Timestamp:   now,
		UserMessage: userMessage,
		BotResponse: botResponse,
	}
	if err := r.store.InsertHistoryEntry(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist history entry", "username", username, "error", err)
	}

	if err := r.store.UpsertUserActivity(ctx, username, now); err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert user activity", "username", username, "error", err)
	}
}

func (r *Router) classifyModelErr(err error) error {
	if errors.Is(err, conversation.ErrNoModel) {
		return fmt.Errorf("%w: model binding absent", ErrUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrModel, err)
}

// containsResetPhrase reports whether the text mentions any reset
// phrase anywhere, even mid-sentence.
func containsResetPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range resetPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
