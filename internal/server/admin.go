package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/publish"
)

// handlePublishCard handles POST /v1/admin/cards/{id}/publish.
func (s *Server) handlePublishCard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("id")
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "card id is required")
		return
	}

	ev, err := s.workflow.PublishCardDefinition(r.Context(), cardID)
	if err != nil {
		var perr *publish.Error
		if errors.As(err, &perr) {
			switch perr.Kind {
			case publish.NotFound:
				writeError(w, http.StatusNotFound, "card not found: "+cardID)
			case publish.SigningFailed:
				s.logger.Error("card signing failed", "card_id", cardID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to sign card definition")
			default:
				s.logger.Error("card publish failed", "card_id", cardID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to store card definition")
			}
			return
		}
		s.logger.Error("card publish failed", "card_id", cardID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish card")
		return
	}

	s.streamOnly(events.TopicCardPublished, events.CardPublished{CardID: cardID, Event: ev})
	writeJSON(w, http.StatusOK, ev)
}

type batchPublishRequest struct {
	CardIDs []string `json:"card_ids"`
}

// handlePublishCards handles POST /v1/admin/cards/publish. Per-card failures
// are reported in the result, never as a failed request.
func (s *Server) handlePublishCards(w http.ResponseWriter, r *http.Request) {
	var req batchPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.CardIDs) == 0 {
		writeError(w, http.StatusBadRequest, "card_ids is required")
		return
	}

	result := s.workflow.PublishCardDefinitions(r.Context(), req.CardIDs)
	for _, ev := range result.Succeeded {
		cardID := strings.TrimPrefix(ev.DTag(), "card_")
		s.streamOnly(events.TopicCardPublished, events.CardPublished{CardID: cardID, Event: ev})
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRebuildIndex handles POST /v1/admin/index/rebuild.
func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.RebuildIndex(r.Context()); err != nil {
		s.logger.Error("index rebuild failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rebuild index")
		return
	}
	snap := s.workflow.IndexerState()
	s.streamOnly(events.TopicIndexRebuilt, events.IndexRebuilt{Addresses: snap.Addresses})
	writeJSON(w, http.StatusOK, snap)
}

// handleIndexState handles GET /v1/admin/index.
func (s *Server) handleIndexState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.workflow.IndexerState())
}

// streamOnly fans out to SSE subscribers without re-publishing to the bus;
// the workflow already emitted the bus event.
func (s *Server) streamOnly(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event for stream", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(topic, data)
}
