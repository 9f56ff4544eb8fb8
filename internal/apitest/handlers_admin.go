package apitest

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request, _ *User) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}

	s.mu.Lock()
	all := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	users := make([]map[string]any, 0, end-start)
	for _, u := range all[start:end] {
		users = append(users, userJSON(u))
	}
	s.mu.Unlock()

	totalPages := (total + limit - 1) / limit
	writeData(w, http.StatusOK, map[string]any{
		"users":      users,
		"total":      total,
		"page":       page,
		"totalPages": totalPages,
	})
}

func (s *Server) adminTarget(w http.ResponseWriter, r *http.Request) (*User, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return nil, false
	}

	s.mu.Lock()
	u := s.users[id]
	s.mu.Unlock()
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	return u, true
}

func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request, _ *User) {
	u, ok := s.adminTarget(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request, _ *User) {
	u, ok := s.adminTarget(w, r)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"displayName"`
		IsVerified  *bool   `json:"isVerified"`
		IsAdmin     *bool   `json:"isAdmin"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid update payload")
		return
	}

	s.mu.Lock()
	if req.DisplayName != nil {
		u.DisplayName = *req.DisplayName
	}
	if req.IsVerified != nil {
		u.IsVerified = *req.IsVerified
	}
	if req.IsAdmin != nil {
		u.IsAdmin = *req.IsAdmin
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, caller *User) {
	u, ok := s.adminTarget(w, r)
	if !ok {
		return
	}
	if u.ID == caller.ID {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	s.mu.Lock()
	delete(s.users, u.ID)
	s.mu.Unlock()
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ *User) {
	s.mu.Lock()
	var verified, twoFactor, locked int64
	for _, u := range s.users {
		if u.IsVerified {
			verified++
		}
		if u.TwoFactorEnabled {
			twoFactor++
		}
		if u.Locked {
			locked++
		}
	}
	total := int64(len(s.users))
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{
		"totalUsers":     total,
		"verifiedUsers":  verified,
		"twoFactorUsers": twoFactor,
		"lockedAccounts": locked,
	})
}

func (s *Server) handleAdminSecurityEvents(w http.ResponseWriter, r *http.Request, _ *User) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.mu.Lock()
	events := s.events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]map[string]any, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		out = append(out, map[string]any{
			"id":        e.ID,
			"userId":    e.UserID,
			"eventType": e.EventType,
			"ip":        e.IP,
			"detail":    e.Detail,
			"createdAt": e.CreatedAt,
		})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"events": out})
}
