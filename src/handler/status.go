package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/avinashpai/market-signals/src/eventmodels"
	"github.com/avinashpai/market-signals/src/eventproducers"
	"github.com/avinashpai/market-signals/src/eventpubsub"
	"github.com/avinashpai/market-signals/src/eventticks"
)

var queryDecoder = schema.NewDecoder()

// StatusHandler exposes a read-only observability surface over the
// pipeline: bus counters, event history, dead letters, and recent candles.
type StatusHandler struct {
	bus        *eventpubsub.Bus
	aggregator *eventticks.CandleAggregator
	signals    *eventproducers.SignalManager
}

func NewStatusHandler(bus *eventpubsub.Bus, aggregator *eventticks.CandleAggregator, signals *eventproducers.SignalManager) *StatusHandler {
	return &StatusHandler{
		bus:        bus,
		aggregator: aggregator,
		signals:    signals,
	}
}

func (h *StatusHandler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/stats", h.getStats).Methods("GET")
	router.HandleFunc("/events", h.getEvents).Methods("GET")
	router.HandleFunc("/deadletters", h.getDeadLetters).Methods("GET")
	router.HandleFunc("/candles/{symbol}", h.getCandles).Methods("GET")
	router.HandleFunc("/signals", h.getSignals).Methods("GET")
	return router
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("StatusHandler: failed to encode response: %v", err)
	}
}

func (h *StatusHandler) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bus":     h.bus.GetStats(),
		"signals": h.signals.Stats(),
	})
}

type eventsQuery struct {
	EventType string `schema:"event_type"`
	Limit     int    `schema:"limit"`
}

func (h *StatusHandler) getEvents(w http.ResponseWriter, r *http.Request) {
	var query eventsQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 100
	}

	events := h.bus.GetHistory(eventmodels.EventName(query.EventType), query.Limit)
	writeJSON(w, http.StatusOK, events)
}

type deadLettersQuery struct {
	Limit int `schema:"limit"`
}

func (h *StatusHandler) getDeadLetters(w http.ResponseWriter, r *http.Request) {
	var query deadLettersQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 100
	}

	letters := h.bus.GetDeadLetters(query.Limit)

	type deadLetterDTO struct {
		EventID      string `json:"event_id"`
		EventName    string `json:"event_name"`
		SubscriberID string `json:"subscriber_id"`
		Error        string `json:"error"`
		Timestamp    string `json:"timestamp"`
	}

	dtos := make([]deadLetterDTO, 0, len(letters))
	for _, letter := range letters {
		dtos = append(dtos, deadLetterDTO{
			EventID:      letter.Event.ID.String(),
			EventName:    string(letter.Event.Name),
			SubscriberID: letter.SubscriberID,
			Error:        letter.Err.Error(),
			Timestamp:    letter.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, dtos)
}

type candlesQuery struct {
	Limit             int  `schema:"limit"`
	IncludeIncomplete bool `schema:"include_incomplete"`
}

func (h *StatusHandler) getCandles(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var query candlesQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}

	candles := h.aggregator.GetRecent(symbol, query.Limit, query.IncludeIncomplete)
	writeJSON(w, http.StatusOK, candles)
}

type signalsQuery struct {
	Limit int `schema:"limit"`
}

// getSignals serves the recently emitted signals out of the bus's retained
// event history, newest last.
func (h *StatusHandler) getSignals(w http.ResponseWriter, r *http.Request) {
	var query signalsQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}

	events := h.bus.GetHistory(eventmodels.SignalGeneratedEvent, query.Limit)

	signals := make([]eventmodels.Signal, 0, len(events))
	for _, event := range events {
		if signal, ok := event.Payload.(eventmodels.Signal); ok {
			signals = append(signals, signal)
		}
	}

	writeJSON(w, http.StatusOK, signals)
}
