package devrelay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// rejection is a send refused for a reason the client can act on.
type rejection struct {
	status int
	msg    string
	code   string
}

func (r *rejection) Error() string { return r.msg }

func reject(status int, msg, code string) error {
	return &rejection{status: status, msg: msg, code: code}
}

// accept checks that sender may address receiver with env and reports
// whether receiver is a group.
func (s *Server) accept(sender domain.UserID, receiver string, env domain.Envelope) (bool, error) {
	if receiver == "" {
		return false, reject(http.StatusBadRequest, "receiver required", "")
	}
	if env.RecipientID != receiver {
		return false, reject(http.StatusBadRequest, "envelope recipient does not match receiver", "")
	}
	if len(env.IV) == 0 || len(env.Ciphertext) == 0 {
		return false, reject(http.StatusBadRequest, "envelope incomplete", "")
	}

	if isGroupID(receiver) {
		ok, err := s.store.IsMember(domain.GroupID(receiver), sender)
		if err != nil {
			return true, err
		}
		if !ok {
			s.metrics.rejected.WithLabelValues("not_member").Inc()
			return true, reject(http.StatusForbidden, "not a member of this group", "")
		}
		return true, nil
	}

	peer := domain.UserID(receiver)
	if _, err := s.store.User(peer); errors.Is(err, errNotFound) {
		return false, reject(http.StatusNotFound, "no such user", "")
	} else if err != nil {
		return false, err
	}
	blocked, err := s.store.IsBlocked(peer, sender)
	if err != nil {
		return false, err
	}
	if blocked {
		s.metrics.rejected.WithLabelValues("blocked").Inc()
		return false, reject(http.StatusForbidden, "You are blocked by this user.", domain.FrameCodeBlocked)
	}
	return false, nil
}

func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	var rj *rejection
	if errors.As(err, &rj) {
		writeError(w, rj.status, rj.msg, rj.code)
		return
	}
	s.internal(w, err)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Receiver string          `json:"receiver"`
		Envelope domain.Envelope `json:"envelope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "")
		return
	}
	group, err := s.accept(caller(r), req.Receiver, req.Envelope)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	msg, err := s.store.SaveMessage(caller(r), req.Receiver, group, req.Envelope, nil)
	if err != nil {
		s.internal(w, err)
		return
	}
	s.metrics.stored.WithLabelValues(kindLabel(group)).Inc()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleSendWithMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", "")
		return
	}
	receiver := r.FormValue("receiver")
	var env domain.Envelope
	if err := json.Unmarshal([]byte(r.FormValue("envelope")), &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope", "")
		return
	}
	group, err := s.accept(caller(r), receiver, env)
	if err != nil {
		s.writeRejection(w, err)
		return
	}

	file, hdr, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "media required", "")
		return
	}
	defer file.Close()
	ft, ok := domain.ClassifyFile(hdr.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported media type", "")
		return
	}
	att, err := s.saveMedia(file, hdr.Filename, ft)
	if err != nil {
		s.internal(w, err)
		return
	}

	msg, err := s.store.SaveMessage(caller(r), receiver, group, env, []domain.Attachment{att})
	if err != nil {
		s.internal(w, err)
		return
	}
	s.metrics.stored.WithLabelValues(kindLabel(group)).Inc()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) saveMedia(src io.Reader, filename string, ft domain.FileType) (domain.Attachment, error) {
	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return domain.Attachment{}, err
	}
	id := uuid.NewString()
	name := id + strings.ToLower(filepath.Ext(filename))
	f, err := os.OpenFile(filepath.Join(s.mediaDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return domain.Attachment{}, err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return domain.Attachment{}, err
	}
	if err := f.Close(); err != nil {
		return domain.Attachment{}, err
	}
	s.log.Debug("stored media", zap.String("name", name), zap.String("type", string(ft)))
	return domain.Attachment{ID: id, FileType: ft, FileURL: "/media/" + name}, nil
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.mediaDir, name))
}
