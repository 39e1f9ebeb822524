package fakebackend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request, body []byte)

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", b.handle(RouteLogin, b.login))
	mux.HandleFunc("POST /api/auth/register", b.handle(RouteRegister, b.register))
	mux.HandleFunc("POST /api/auth/refresh", b.handle(RouteRefresh, b.refresh))
	mux.HandleFunc("GET /api/auth/logout", b.handle(RouteLogout, b.logout))

	mux.HandleFunc("GET /api/users/profile", b.handle(RouteProfile, b.protected(b.getProfile)))
	mux.HandleFunc("PUT /api/users/edit", b.handle(RouteEdit, b.protected(b.editProfile)))
	mux.HandleFunc("GET /api/users/profile/{username}", b.handle(RouteLookup, b.protected(b.lookupProfile)))

	mux.HandleFunc("GET /api/meetings", b.handle(RouteMeetings, b.protected(b.listMeetings)))
	mux.HandleFunc("POST /api/meetings", b.handle(RouteMeetings, b.protected(b.createMeeting)))
	mux.HandleFunc("GET /api/meetings/search", b.handle(RouteMeetings, b.protected(b.searchMeetings)))
	mux.HandleFunc("GET /api/meetings/{id}", b.handle(RouteMeetings, b.protected(b.getMeeting)))
	mux.HandleFunc("PUT /api/meetings/{id}", b.handle(RouteMeetings, b.protected(b.updateMeeting)))
	mux.HandleFunc("DELETE /api/meetings/{id}", b.handle(RouteMeetings, b.protected(b.deleteMeeting)))
	mux.HandleFunc("GET /api/meetings/{id}/notes", b.handle(RouteMeetings, b.protected(b.getNotes)))
	mux.HandleFunc("PUT /api/meetings/{id}/notes", b.handle(RouteMeetings, b.protected(b.saveNotes)))

	mux.HandleFunc("GET /api/notifications", b.handle(RouteNotifications, b.protected(b.listNotifications)))
	mux.HandleFunc("PUT /api/notifications/read-all", b.handle(RouteNotifications, b.protected(b.readAll)))
	mux.HandleFunc("PUT /api/notifications/{id}/read", b.handle(RouteNotifications, b.protected(b.markRead)))
	mux.HandleFunc("DELETE /api/notifications/{id}", b.handle(RouteNotifications, b.protected(b.deleteNotification)))
	mux.HandleFunc("GET /api/notifications/settings", b.handle(RouteNotifications, b.protected(b.getSettings)))
	mux.HandleFunc("PUT /api/notifications/settings", b.handle(RouteNotifications, b.protected(b.putSettings)))

	mux.HandleFunc("GET /api/analytics/transcripts/{meetingID}", b.handle(RouteAnalytics, b.protected(b.getTranscript)))
	mux.HandleFunc("POST /api/analytics/reports", b.handle(RouteAnalytics, b.protected(b.generateReport)))

	return mux
}

// handle records the request and applies scripted delays and statuses.
func (b *Backend) handle(route string, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.calls[route]++
		call := b.calls[route]
		b.requests = append(b.requests, RecordedRequest{
			Route:  route,
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		delay := b.delays[route]
		status := b.statuses[route]
		b.mu.Unlock()

		if status != 0 {
			if delay != nil {
				wait(r, delay(call))
			}
			writeMessage(w, status, http.StatusText(status))
			return
		}

		if delay == nil {
			next(w, r, body)
			return
		}

		// Run the handler first so the response reflects server state at
		// request time, then hold it back.
		rec := &bufferedResponse{header: http.Header{}, status: http.StatusOK}
		next(rec, r, body)
		if !wait(r, delay(call)) {
			return
		}
		for k, v := range rec.header {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.status)
		_, _ = w.Write(rec.body.Bytes())
	}
}

func wait(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }
func (b *bufferedResponse) WriteHeader(status int)      { b.status = status }

// protected rejects requests without a valid access cookie with 401.
func (b *Backend) protected(next func(w http.ResponseWriter, r *http.Request, username string, body []byte)) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		b.mu.Lock()
		username, ok := b.authenticate(r)
		b.mu.Unlock()
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Token expired or invalid")
			return
		}
		next(w, r, username, body)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request, body []byte) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &creds); err != nil || creds.Username == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[creds.Username]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(creds.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := b.issueAccess(w, creds.Username); err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	b.issueRefresh(w, creds.Username)
	out := map[string]any{"message": "Login successful"}
	if !b.loginOmitsUser {
		out["user"] = copyMap(acct.profile)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request, body []byte) {
	var reg map[string]any
	if err := json.Unmarshal(body, &reg); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	username, _ := reg["username"].(string)
	password, _ := reg["password"].(string)
	if username == "" || password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	b.mu.Lock()
	_, exists := b.accounts[username]
	b.mu.Unlock()
	if exists {
		writeMessage(w, http.StatusConflict, "Username already taken")
		return
	}

	profile := map[string]any{}
	for k, v := range reg {
		if k != "password" {
			profile[k] = v
		}
	}
	b.AddUser(username, password, profile)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully"})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	username, ok := b.refreshTokens[c.Value]
	if !ok || b.rejectRefresh {
		clearCookies(w)
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	delete(b.refreshTokens, c.Value)
	if err := b.issueAccess(w, username); err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	b.issueRefresh(w, username)
	writeMessage(w, http.StatusOK, "Token refreshed")
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, err := r.Cookie(RefreshCookie); err == nil {
		delete(b.refreshTokens, c.Value)
	}
	clearCookies(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (b *Backend) getProfile(w http.ResponseWriter, r *http.Request, username string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, copyMap(b.accounts[username].profile))
}

func (b *Backend) editProfile(w http.ResponseWriter, r *http.Request, username string, body []byte) {
	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.accounts[username].profile
	for k, v := range patch {
		if k == "username" {
			continue
		}
		p[k] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "user": copyMap(p)})
}

func (b *Backend) lookupProfile(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[r.PathValue("username")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	public := copyMap(acct.profile)
	delete(public, "mobile_no")
	writeJSON(w, http.StatusOK, public)
}

func (b *Backend) listMeetings(w http.ResponseWriter, r *http.Request, username string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.meetings))
	for _, m := range b.meetings {
		if m["organizer"] == username {
			out = append(out, copyMap(m))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createMeeting(w http.ResponseWriter, r *http.Request, username string, body []byte) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if title, _ := m["title"].(string); title == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m["id"] = uuid.NewString()
	m["organizer"] = username
	b.meetings[m["id"].(string)] = m
	writeJSON(w, http.StatusCreated, copyMap(m))
}

func (b *Backend) searchMeetings(w http.ResponseWriter, r *http.Request, username string, _ []byte) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, m := range b.meetings {
		title, _ := m["title"].(string)
		if m["organizer"] == username && strings.Contains(strings.ToLower(title), q) {
			out = append(out, copyMap(m))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getMeeting(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meetings[r.PathValue("id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, copyMap(m))
}

func (b *Backend) updateMeeting(w http.ResponseWriter, r *http.Request, _ string, body []byte) {
	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meetings[r.PathValue("id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Meeting not found")
		return
	}
	for k, v := range patch {
		if k != "id" && k != "organizer" {
			m[k] = v
		}
	}
	writeJSON(w, http.StatusOK, copyMap(m))
}

func (b *Backend) deleteMeeting(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.meetings[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Meeting not found")
		return
	}
	delete(b.meetings, id)
	delete(b.notes, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) getNotes(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.notes[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"meeting_id": r.PathValue("id"), "content": ""})
		return
	}
	writeJSON(w, http.StatusOK, copyMap(n))
}

func (b *Backend) saveNotes(w http.ResponseWriter, r *http.Request, _ string, body []byte) {
	var n map[string]any
	if err := json.Unmarshal(body, &n); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.meetings[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Meeting not found")
		return
	}
	n["meeting_id"] = id
	b.notes[id] = n
	writeJSON(w, http.StatusOK, copyMap(n))
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, 0, len(b.notifications))
	for _, n := range b.notifications {
		if unreadOnly && n["read"] == true {
			continue
		}
		out = append(out, copyMap(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) markRead(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.notifications[r.PathValue("id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Notification not found")
		return
	}
	n["read"] = true
	writeJSON(w, http.StatusOK, copyMap(n))
}

func (b *Backend) readAll(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		n["read"] = true
	}
	writeMessage(w, http.StatusOK, "All notifications marked read")
}

func (b *Backend) deleteNotification(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.notifications[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Notification not found")
		return
	}
	delete(b.notifications, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) getSettings(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, copyMap(b.settings))
}

func (b *Backend) putSettings(w http.ResponseWriter, r *http.Request, _ string, body []byte) {
	var s map[string]any
	if err := json.Unmarshal(body, &s); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range s {
		b.settings[k] = v
	}
	writeJSON(w, http.StatusOK, copyMap(b.settings))
}

func (b *Backend) getTranscript(w http.ResponseWriter, r *http.Request, _ string, _ []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.transcripts[r.PathValue("meetingID")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Transcript not found")
		return
	}
	writeJSON(w, http.StatusOK, copyMap(t))
}

func (b *Backend) generateReport(w http.ResponseWriter, r *http.Request, _ string, body []byte) {
	var req struct {
		MeetingID string `json:"meeting_id"`
		Kind      string `json:"kind"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.MeetingID == "" {
		writeMessage(w, http.StatusBadRequest, "meeting_id is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.transcripts[req.MeetingID]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Transcript not found")
		return
	}
	text, _ := t["text"].(string)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         uuid.NewString(),
		"meeting_id": req.MeetingID,
		"kind":       req.Kind,
		"summary":    "Summary of " + text,
		"created_at": NowTimeFunc().UTC().Format(time.RFC3339),
	})
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
