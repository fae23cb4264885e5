package devrelay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	user := caller(r)
	ok, err := s.roomMember(room, user)
	if err != nil {
		s.internal(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "not a member of this room", "")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.String("room", room), zap.Error(err))
		return
	}
	c := &client{hub: s.hub, conn: conn, room: room, user: user, send: make(chan []byte, sendBuffer)}
	s.hub.join(c)
	s.log.Info("socket joined", zap.String("room", room), zap.String("user", user.String()))

	go c.writePump()
	go c.readPump(s.handleFrame)
}

// handleFrame relays one client frame. A frame carrying an id refers to a
// message already stored through /send/ and is only fanned out; a frame
// without one is validated and stored first.
func (s *Server) handleFrame(c *client, data []byte) {
	var f domain.OutboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Debug("malformed frame", zap.String("room", c.room), zap.Error(err))
		return
	}

	var msg domain.StoredMessage
	if f.ID != "" {
		stored, _, err := s.store.Message(f.ID, c.user)
		if err != nil {
			s.log.Debug("unknown message id", zap.String("id", f.ID.String()), zap.Error(err))
			return
		}
		if stored.SenderID != c.user {
			s.metrics.rejected.WithLabelValues("not_sender").Inc()
			return
		}
		msg = stored
	} else {
		var env domain.Envelope
		if err := json.Unmarshal(f.Message, &env); err != nil {
			s.sendError(c, "invalid message", "")
			return
		}
		group, err := s.accept(c.user, f.ReceiverID, env)
		if err != nil {
			var rj *rejection
			if errors.As(err, &rj) {
				s.sendError(c, rj.msg, rj.code)
			} else {
				s.log.Error("accept frame", zap.Error(err))
			}
			return
		}
		msg, err = s.store.SaveMessage(c.user, f.ReceiverID, group, env, nil)
		if err != nil {
			s.log.Error("store frame", zap.Error(err))
			return
		}
		s.metrics.stored.WithLabelValues(kindLabel(group)).Inc()
	}

	if roomFor(msg) != c.room {
		s.metrics.rejected.WithLabelValues("wrong_room").Inc()
		return
	}
	raw, err := json.Marshal(msg.Envelope)
	if err != nil {
		s.log.Error("encode envelope", zap.Error(err))
		return
	}
	out, err := json.Marshal(domain.InboundFrame{
		ID:          msg.ID,
		Message:     raw,
		SenderID:    msg.SenderID,
		ReceiverID:  msg.ReceiverID,
		Timestamp:   msg.Timestamp,
		Attachments: msg.Attachments,
	})
	if err != nil {
		s.log.Error("encode frame", zap.Error(err))
		return
	}
	s.hub.broadcast(c.room, out)
}

func (s *Server) sendError(c *client, msg, code string) {
	b, err := json.Marshal(domain.InboundFrame{Error: msg, Code: code})
	if err != nil {
		return
	}
	s.hub.direct(c, b)
}

// roomFor names the room a stored message belongs to.
func roomFor(m domain.StoredMessage) string {
	if isGroupID(m.ReceiverID) {
		return transport.GroupRoom(domain.GroupID(m.ReceiverID))
	}
	return transport.DirectRoom(m.SenderID, domain.UserID(m.ReceiverID))
}
