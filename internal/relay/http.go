package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

type HTTP struct {
	Base  string
	Token string
	HTTP  *http.Client
}

func NewHTTP(base, token string) *HTTP {
	return &HTTP{Base: strings.TrimRight(base, "/"), Token: token, HTTP: http.DefaultClient}
}

type sendRequest struct {
	Receiver string          `json:"receiver"`
	Envelope domain.Envelope `json:"envelope"`
}

// errorBody is the relay's JSON error shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *HTTP) SendMessage(ctx context.Context, receiver string, env domain.Envelope) (domain.StoredMessage, error) {
	var out domain.StoredMessage
	err := c.sendJSON(ctx, http.MethodPost, "/send/", sendRequest{Receiver: receiver, Envelope: env}, &out)
	return out, err
}

// SendMessageWithMedia posts the envelope and one file as multipart form
// fields "receiver", "envelope" and "media".
func (c *HTTP) SendMessageWithMedia(
	ctx context.Context,
	receiver string,
	env domain.Envelope,
	media domain.MediaUpload,
) (domain.StoredMessage, error) {
	var out domain.StoredMessage

	envJSON, err := json.Marshal(env)
	if err != nil {
		return out, err
	}
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("receiver", receiver); err != nil {
		return out, err
	}
	if err := mw.WriteField("envelope", string(envJSON)); err != nil {
		return out, err
	}
	fw, err := mw.CreateFormFile("media", media.Name)
	if err != nil {
		return out, err
	}
	if _, err := fw.Write(media.Data); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	err = c.do(ctx, http.MethodPost, "/send-with-media/", buf, mw.FormDataContentType(), &out)
	return out, err
}

// FetchHistory returns the stored messages of a conversation, oldest first.
func (c *HTTP) FetchHistory(ctx context.Context, conv domain.Conversation) ([]domain.StoredMessage, error) {
	path := "/" + url.PathEscape(conv.Peer.String()) + "/"
	if conv.Kind == domain.Group {
		path = "/groups/" + url.PathEscape(conv.Group.String()) + "/messages/"
	}
	var out []domain.StoredMessage
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) DeleteMessage(ctx context.Context, id domain.MessageID) error {
	return c.do(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id.String())+"/", nil, "", nil)
}

func (c *HTTP) FetchUser(ctx context.Context, id domain.UserID) (domain.DirectoryEntry, error) {
	var out domain.DirectoryEntry
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(id.String())+"/", &out); err != nil {
		return domain.DirectoryEntry{}, err
	}
	return out, nil
}

func (c *HTTP) PublishPublicKey(ctx context.Context, key domain.PublicKeyString) error {
	return c.sendJSON(ctx, http.MethodPut, "/keys/", struct {
		PublicKey domain.PublicKeyString `json:"public_key"`
	}{key}, nil)
}

func (c *HTTP) FetchGroupMembers(ctx context.Context, group domain.GroupID) ([]domain.UserID, error) {
	var out []domain.UserID
	if err := c.getJSON(ctx, "/groups/"+url.PathEscape(group.String())+"/members/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup creates a group of the caller and members.
func (c *HTTP) CreateGroup(ctx context.Context, name string, members []domain.UserID) (domain.GroupID, error) {
	var out struct {
		ID domain.GroupID `json:"id"`
	}
	err := c.sendJSON(ctx, http.MethodPost, "/groups/", struct {
		Name    string          `json:"name"`
		Members []domain.UserID `json:"members"`
	}{name, members}, &out)
	return out.ID, err
}

// Block stops user from sending to the caller.
func (c *HTTP) Block(ctx context.Context, user domain.UserID) error {
	return c.sendJSON(ctx, http.MethodPost, "/blocks/", struct {
		UserID domain.UserID `json:"user_id"`
	}{user}, nil)
}

// Session is the identity and bearer token returned by register and login.
type Session struct {
	ID    domain.UserID `json:"id"`
	Token string        `json:"token"`
}

// Register creates an account and returns its session. The client's Token
// is not changed.
func (c *HTTP) Register(ctx context.Context, username, password string) (Session, error) {
	return c.authenticate(ctx, "/register/", username, password)
}

// Login returns a fresh session for an existing account.
func (c *HTTP) Login(ctx context.Context, username, password string) (Session, error) {
	return c.authenticate(ctx, "/login/", username, password)
}

func (c *HTTP) authenticate(ctx context.Context, path, username, password string) (Session, error) {
	var out Session
	err := c.sendJSON(ctx, http.MethodPost, path, struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}, &out)
	return out, err
}

func (c *HTTP) sendJSON(ctx context.Context, method, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	return c.do(ctx, method, path, buf, "application/json", out)
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *HTTP) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Wrap(domain.CodeTransport, fmt.Sprintf("relay %s %s", strings.ToLower(method), path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("relay %s %s: decode: %w", strings.ToLower(method), path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	msg := fmt.Sprintf("relay %s %s: %s", strings.ToLower(method), path, resp.Status)

	var eb errorBody
	if b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); len(b) > 0 {
		_ = json.Unmarshal(b, &eb)
	}
	if eb.Code == domain.FrameCodeBlocked {
		return domain.New(domain.CodeBlocked, msg)
	}
	if eb.Error != "" {
		msg += ": " + eb.Error
	}
	return domain.New(domain.CodeTransport, msg)
}

var _ domain.RelayClient = (*HTTP)(nil)
