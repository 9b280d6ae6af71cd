package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/postgres"

	"github.com/go-chi/chi/v5"
)

type RoomReader interface {
	MemberCount(id string) (int, error)
	Snapshot() map[string][]string
}

type EventLister interface {
	List(ctx context.Context, roomID string, limit int, cursor string) ([]domain.RoomEvent, string, error)
}

type Handler struct {
	rooms  RoomReader
	events EventLister
}

// NewHandler accepts a nil events lister; /events then answers 501.
func NewHandler(rooms RoomReader, events EventLister) *Handler {
	return &Handler{rooms: rooms, events: events}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	snap := h.rooms.Snapshot()
	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(snap))}
	for id, members := range snap {
		resp.Items = append(resp.Items, RoomItem{ID: id, Participants: members})
	}
	sort.Slice(resp.Items, func(i, j int) bool { return resp.Items[i].ID < resp.Items[j].ID })

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.rooms.MemberCount(id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomCountResponse{
		ID:              id,
		Participants:    n,
		MaxParticipants: domain.MaxParticipants,
	})
}

// GET /events?room=&limit=&cursor=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "audit log disabled"})
		return
	}
	q := r.URL.Query()
	limit := 50
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.events.List(r.Context(), q.Get("room"), limit, q.Get("cursor"))
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListEvents:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := EventsListResponse{Items: make([]EventItem, 0, len(items)), NextCursor: next}
	for _, ev := range items {
		resp.Items = append(resp.Items, EventItem{
			ID:            ev.ID,
			RoomID:        ev.RoomID,
			ParticipantID: ev.ParticipantID,
			Kind:          string(ev.Kind),
			CreatedAt:     ev.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
