package devrelay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

// maxUploadSize bounds a send-with-media request.
const maxUploadSize = 25 << 20

// Server serves the relay API over one Store.
type Server struct {
	store    *Store
	hub      *hub
	log      *zap.Logger
	secret   []byte
	mediaDir string
	metrics  *metrics
	registry *prometheus.Registry
	upgrader websocket.Upgrader
}

// NewServer builds a relay over store. Media files are written to mediaDir.
func NewServer(store *Store, secret []byte, mediaDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	return &Server{
		store:    store,
		hub:      newHub(m, log),
		log:      log,
		secret:   secret,
		mediaDir: mediaDir,
		metrics:  m,
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	r.HandleFunc("/register/", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login/", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/media/{name}", s.handleMedia).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/keys/", s.handlePublishKey).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}/", s.handleUser).Methods(http.MethodGet)
	api.HandleFunc("/groups/", s.handleCreateGroup).Methods(http.MethodPost)
	api.HandleFunc("/groups/{id}/members/", s.handleMembers).Methods(http.MethodGet)
	api.HandleFunc("/groups/{id}/messages/", s.handleGroupHistory).Methods(http.MethodGet)
	api.HandleFunc("/blocks/", s.handleBlock).Methods(http.MethodPost)
	api.HandleFunc("/send/", s.handleSend).Methods(http.MethodPost)
	api.HandleFunc("/send-with-media/", s.handleSendWithMedia).Methods(http.MethodPost)
	api.HandleFunc("/delete/{id}/", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/ws/chat/{room}/", s.handleSocket).Methods(http.MethodGet)
	api.HandleFunc("/{peer:[0-9]+}/", s.handleDirectHistory).Methods(http.MethodGet)
	return r
}

// Close disconnects every socket.
func (s *Server) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	for _, members := range s.hub.rooms {
		for c := range members {
			s.hub.removeLocked(c)
		}
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("relay listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type session struct {
	ID    domain.UserID `json:"id"`
	Token string        `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required", "")
		return
	}
	if _, err := s.store.UserByName(req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already taken", "")
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		s.internal(w, err)
		return
	}
	id, err := s.store.CreateUser(req.Username, hash)
	if err != nil {
		s.internal(w, err)
		return
	}
	s.issue(w, id, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return
	}
	u, err := s.store.UserByName(req.Username)
	if err != nil || !checkPassword(u.HashedPassword, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password", "")
		return
	}
	s.issue(w, u.ID, http.StatusOK)
}

func (s *Server) issue(w http.ResponseWriter, id domain.UserID, status int) {
	tok, err := IssueToken(s.secret, id, TokenTTL)
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, status, session{ID: id, Token: tok})
}

func (s *Server) handlePublishKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey domain.PublicKeyString `json:"public_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicKey == "" {
		writeError(w, http.StatusBadRequest, "public_key required", "")
		return
	}
	if err := s.store.SetPublicKey(caller(r), req.PublicKey); err != nil {
		s.internal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.User(domain.UserID(mux.Vars(r)["id"]))
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, "no such user", "")
		return
	}
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DirectoryEntry{ID: u.ID, Username: u.Username, PublicKey: u.PublicKey})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string          `json:"name"`
		Members []domain.UserID `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required", "")
		return
	}
	members := append([]domain.UserID{caller(r)}, req.Members...)
	id, err := s.store.CreateGroup(req.Name, members)
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID domain.GroupID `json:"id"`
	}{id})
}

// memberOf writes 403 and returns false unless the caller belongs to group.
func (s *Server) memberOf(w http.ResponseWriter, r *http.Request, group domain.GroupID) bool {
	ok, err := s.store.IsMember(group, caller(r))
	if err != nil {
		s.internal(w, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "not a member of this group", "")
		return false
	}
	return true
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	group := domain.GroupID(mux.Vars(r)["id"])
	if !s.memberOf(w, r, group) {
		return
	}
	members, err := s.store.Members(group)
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleGroupHistory(w http.ResponseWriter, r *http.Request) {
	group := domain.GroupID(mux.Vars(r)["id"])
	if !s.memberOf(w, r, group) {
		return
	}
	ms, err := s.store.GroupHistory(group, caller(r))
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleDirectHistory(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.DirectHistory(caller(r), domain.UserID(mux.Vars(r)["peer"]))
	if err != nil {
		s.internal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID domain.UserID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id required", "")
		return
	}
	if err := s.store.Block(caller(r), req.UserID); err != nil {
		s.internal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteMessage(domain.MessageID(mux.Vars(r)["id"]), caller(r))
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "no such message", "")
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, "only the sender can delete a message", "")
	case err != nil:
		s.internal(w, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) internal(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
		Code  string `json:"code,omitempty"`
	}{msg, code})
}

// roomMember reports whether user may join room.
func (s *Server) roomMember(room string, user domain.UserID) (bool, error) {
	if rest, ok := strings.CutPrefix(room, "dm_"); ok {
		a, b, ok := strings.Cut(rest, "_")
		me := transport.RoomID(user.String())
		return ok && (a == me || b == me), nil
	}
	if g, ok := strings.CutPrefix(room, "group_"); ok {
		if !isGroupID(g) {
			return false, nil
		}
		return s.store.IsMember(domain.GroupID(g), user)
	}
	return false, nil
}
