package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/visibility"
)

// actorPayload is the wire form of an actor. A nil permission list
// means "apply the configured defaults for this authentication state";
// an explicit empty list means "no permissions".
type actorPayload struct {
	ID            int64     `json:"id"`
	Authenticated *bool     `json:"authenticated,omitempty"`
	Permissions   *[]string `json:"permissions,omitempty"`
	Roles         []string  `json:"roles,omitempty"`
}

type itemPayload struct {
	TargetType     string   `json:"target_type"`
	TargetID       int64    `json:"target_id"`
	RecipientUser  *int64   `json:"recipient_user,omitempty"`
	RecipientGroup *int64   `json:"recipient_group,omitempty"`
	Group          *int64   `json:"group,omitempty"`
	Visibility     string   `json:"visibility,omitempty"`
	PostVisibility *int64   `json:"post_visibility,omitempty"`
	Grants         []string `json:"grants,omitempty"`
}

type checkRequest struct {
	Actor actorPayload `json:"actor"`
	Item  itemPayload  `json:"item"`
	Scope string       `json:"scope"`
}

type checkResponse struct {
	Visible bool   `json:"visible"`
	Scope   string `json:"scope"`
	Target  string `json:"target_type"`
	ID      int64  `json:"target_id"`
}

type resolveRequest struct {
	Actor           actorPayload `json:"actor"`
	Scope           string       `json:"scope"`
	Targets         []string     `json:"targets,omitempty"`
	CandidateFilter string       `json:"candidate_filter,omitempty"`
}

type resolveResponse struct {
	IDs        map[string][]int64 `json:"ids"`
	Excluded   []string           `json:"excluded"`
	Unresolved []string           `json:"unresolved"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) actor(p actorPayload) visibility.Actor {
	authenticated := p.ID != visibility.AnonymousID
	if p.Authenticated != nil {
		authenticated = *p.Authenticated
	}

	var perms []string
	switch {
	case p.Permissions != nil:
		perms = *p.Permissions
	case authenticated:
		perms = s.defaults.AuthenticatedPermissions
	default:
		perms = s.defaults.AnonymousPermissions
	}

	var actor visibility.Actor
	if authenticated {
		actor = visibility.NewActor(p.ID, perms...)
	} else {
		actor = visibility.Anonymous(perms...)
	}
	if len(p.Roles) > 0 {
		actor = actor.WithRoles(p.Roles...)
	}
	return actor
}

func decodeItem(p itemPayload) (visibility.Item, error) {
	item := visibility.Item{
		Target:         visibility.TargetType(p.TargetType),
		TargetID:       p.TargetID,
		RecipientUser:  p.RecipientUser,
		RecipientGroup: p.RecipientGroup,
		Group:          p.Group,
		Visibility:     visibility.Level(p.Visibility),
		PostVisibility: p.PostVisibility,
	}
	for _, g := range p.Grants {
		ref, err := visibility.ParseGrantRef(g)
		if err != nil {
			return visibility.Item{}, err
		}
		item.Grants = append(item.Grants, ref)
	}
	return item, nil
}

func encodeItem(item visibility.Item) itemPayload {
	p := itemPayload{
		TargetType:     string(item.Target),
		TargetID:       item.TargetID,
		RecipientUser:  item.RecipientUser,
		RecipientGroup: item.RecipientGroup,
		Group:          item.Group,
		Visibility:     string(item.Visibility),
		PostVisibility: item.PostVisibility,
	}
	for _, ref := range item.Grants {
		p.Grants = append(p.Grants, ref.String())
	}
	return p
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	scope, ok := visibility.ParseScope(req.Scope)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scope: "+req.Scope)
		return
	}
	if req.Item.TargetType == "" {
		writeError(w, http.StatusBadRequest, "item.target_type is required")
		return
	}

	item, err := decodeItem(req.Item)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item: "+err.Error())
		return
	}

	visible, err := s.resolver.IsVisible(r.Context(), s.actor(req.Actor), item, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		Visible: visible,
		Scope:   string(scope),
		Target:  string(item.Target),
		ID:      item.TargetID,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	scope, ok := visibility.ParseScope(req.Scope)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown scope: "+req.Scope)
		return
	}

	targets := make([]visibility.TargetType, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, visibility.TargetType(t))
	}

	result, err := s.resolver.ResolveVisibleIDs(r.Context(), s.actor(req.Actor), scope, visibility.ResolveOptions{
		Targets:         targets,
		CandidateFilter: req.CandidateFilter,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := resolveResponse{
		IDs:        make(map[string][]int64, len(result.IDs)),
		Excluded:   make([]string, 0, len(result.Excluded)),
		Unresolved: make([]string, 0, len(result.Unresolved)),
	}
	for target, ids := range result.IDs {
		resp.IDs[string(target)] = ids
	}
	for _, t := range result.Excluded {
		resp.Excluded = append(resp.Excluded, string(t))
	}
	for _, t := range result.Unresolved {
		resp.Unresolved = append(resp.Unresolved, string(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	target := visibility.TargetType(r.PathValue("target"))
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id: "+r.PathValue("id"))
		return
	}

	item, err := s.catalog.Get(r.Context(), target, id)
	if err != nil {
		if errors.Is(err, physical.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, encodeItem(item))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
