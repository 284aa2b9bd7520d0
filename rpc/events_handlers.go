package rpc

import (
	"net/http"

	"tokenflow/storage/eventstore"
)

type eventsParams struct {
	Type  string `json:"type,omitempty"`
	After uint64 `json:"after,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event archive disabled", nil)
		return
	}
	var params eventsParams
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeParamError(w, req, err)
			return
		}
	}
	records, err := s.archive.List(r.Context(), eventstore.Filter{Type: params.Type, After: params.After, Limit: params.Limit})
	if err != nil {
		s.logger.Error("list archived events", "error", err)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list events", nil)
		return
	}
	out := make([]EventResult, 0, len(records))
	for _, record := range records {
		result, err := eventResultFrom(record)
		if err != nil {
			s.logger.Error("decode archived event", "id", record.ID.String(), "error", err)
			writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to decode event", nil)
			return
		}
		out = append(out, result)
	}
	writeResult(w, req.ID, out)
}

func eventResultFrom(record eventstore.Record) (EventResult, error) {
	evt, err := record.Event()
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{
		Sequence:   record.Sequence,
		ID:         record.ID.String(),
		Type:       evt.Type,
		Attributes: evt.Attributes,
		CreatedAt:  record.CreatedAt.Unix(),
	}, nil
}
