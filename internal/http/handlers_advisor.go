package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tally/internal/advisor"
	"tally/internal/core"
)

const maxSessionIDLen = 64

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "chat", err)
		return
	}
	if s.svc.Advisor == nil {
		writeError(w, r, "chat", core.Upstream(nil, "advisor is not configured"))
		return
	}

	sessionID, session, err := s.session(id, req.SessionID)
	if err != nil {
		writeError(w, r, "chat", err)
		return
	}
	reply, err := s.svc.Advisor.Chat(r.Context(), session, id, req.Message)
	if err != nil {
		writeError(w, r, "chat", err)
		return
	}
	s.sessions.Set(id, sessionID, session)

	NewJSONResponse().Body(chatResponse{SessionID: sessionID, Reply: reply}).Write(w)
}

// session returns the conversation stored under (workspace, sessionID),
// starting a new one when the id is empty or has expired.
func (s *Server) session(workspace, sessionID string) (string, *advisor.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return uuid.NewString(), advisor.NewSession(s.opts.ChatWindow), nil
	}
	if len(sessionID) > maxSessionIDLen {
		return "", nil, core.Validation("session_id too long (max %d characters)", maxSessionIDLen)
	}
	if sess, ok := s.sessions.Get(workspace, sessionID); ok {
		return sessionID, sess, nil
	}
	return sessionID, advisor.NewSession(s.opts.ChatWindow), nil
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	if s.svc.Advisor == nil {
		writeError(w, r, "advice", core.Upstream(nil, "advisor is not configured"))
		return
	}
	advice, err := s.svc.Advisor.Advice(r.Context(), id, r.URL.Query().Get("focus"))
	if err != nil {
		writeError(w, r, "advice", err)
		return
	}
	NewJSONResponse().Body(map[string]string{"advice": advice}).Write(w)
}
