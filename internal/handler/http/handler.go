// Package http is the control-plane surface (SPEC_FULL.md §17): a
// go-chi REST API over the same store.MessageStore and presence.Store
// the core uses directly, never through the Registry. It exists so
// conversation history, unread counts, and group administration can be
// exercised without a live socket.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/presence"
	"github.com/Merrick1307/chat-core/internal/service"
	"github.com/Merrick1307/chat-core/internal/store"
)

// Handler serves the control-plane REST surface. It depends only on
// MessageStore and presence.Store — never on registry.Hubber — per
// spec.md §3 Ownership.
type Handler struct {
	logger  *slog.Logger
	store   store.MessageStore
	presence presence.Store
	auth    service.Auther
}

func NewHandler(logger *slog.Logger, st store.MessageStore, pres presence.Store, auth service.Auther) *Handler {
	return &Handler{logger: logger, store: st, presence: pres, auth: auth}
}

// Routes mounts the control-plane surface onto r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/conversations/{peerID}", h.getConversation)
	r.Get("/unread", h.getUnread)
	r.Post("/groups", h.createGroup)
	r.Get("/groups/{groupID}/members", h.listMembers)
	r.Post("/groups/{groupID}/members", h.addMember)
	r.Delete("/groups/{groupID}/members/{userID}", h.removeMember)
}

func (h *Handler) identity(r *http.Request) (uuid.UUID, error) {
	token := r.Header.Get("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	identity, err := h.auth.Verify(r.Context(), token)
	return identity.UserID, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// getConversation returns the direct-message history between the
// caller and peerID, newest-first per store.GetConversation.
func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	peerID, err := uuid.Parse(chi.URLParam(r, "peerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid peer id")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	messages, err := h.store.GetConversation(r.Context(), userID, peerID, limit, offset)
	if err != nil {
		h.logger.Error("GET_CONVERSATION_FAILED", "user_id", userID, "peer_id", peerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// getUnread returns the caller's undelivered-or-unread direct messages.
func (h *Handler) getUnread(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messages, err := h.store.GetUnreadMessages(r.Context(), userID)
	if err != nil {
		h.logger.Error("GET_UNREAD_FAILED", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load unread messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

type createGroupRequest struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

// createGroup creates a group with the caller as creator plus any
// additional members supplied up front.
func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	group := &model.Group{ID: uuid.New(), Name: req.Name, CreatorID: userID}
	members := append([]uuid.UUID{userID}, req.MemberIDs...)

	if err := h.store.CreateGroup(r.Context(), group, members); err != nil {
		h.logger.Error("CREATE_GROUP_FAILED", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// listMembers returns a group's member ids, gated on the caller
// themselves being a member.
func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	isMember, err := h.store.IsMember(r.Context(), groupID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "not a member")
		return
	}

	members, err := h.store.GetGroupMembers(r.Context(), groupID)
	if err != nil {
		h.logger.Error("LIST_MEMBERS_FAILED", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	writeJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   model.MemberRole `json:"role"`
}

// addMember adds a member to a group. Only an existing member may add
// another (spec.md §3 group admin is out of scope for finer-grained
// role checks beyond membership).
func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	isMember, err := h.store.IsMember(r.Context(), groupID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "not a member")
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}

	if err := h.store.AddMember(r.Context(), groupID, req.UserID, req.Role); err != nil {
		h.logger.Error("ADD_MEMBER_FAILED", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// removeMember removes a member from a group. Callers may remove
// themselves or any other member; the creator-only restriction is left
// to a future admin role check (spec.md §9 Open Question, unresolved).
func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	userID, err := h.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	isMember, err := h.store.IsMember(r.Context(), groupID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "not a member")
		return
	}

	if err := h.store.RemoveMember(r.Context(), groupID, targetID); err != nil {
		h.logger.Error("REMOVE_MEMBER_FAILED", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
