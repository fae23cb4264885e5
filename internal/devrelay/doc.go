// Package devrelay is a development relay implementing the HTTP and
// websocket contracts the client consumes.
//
// HTTP API (all but register, login, media and metrics need a bearer token)
//
//	POST   /register/                 {username, password} -> {id, token}
//	POST   /login/                    {username, password} -> {id, token}
//	PUT    /keys/                     {public_key}
//	GET    /users/{id}/               -> {id, username, public_key}
//	POST   /groups/                   {name, members} -> {id}
//	GET    /groups/{id}/members/      -> [user ids]
//	GET    /groups/{id}/messages/     -> history
//	POST   /blocks/                   {user_id}: the caller blocks user_id
//	POST   /send/                     {receiver, envelope} -> stored message
//	POST   /send-with-media/          multipart receiver, envelope, media
//	GET    /{peerId}/                 -> direct history, oldest first
//	DELETE /delete/{id}/              sender only
//	GET    /media/{name}              stored attachment
//	GET    /metrics                   Prometheus metrics
//	GET    /ws/chat/{room}/           room websocket
//
// Behaviour
//
//   - State lives in a sqlite database; media files under the media directory.
//   - Ids and timestamps are assigned by the relay.
//   - A sender blocked by the recipient gets 403 {"error", "code":"blocked"}
//     on the HTTP path and an error frame on the websocket path.
//   - Envelopes are stored and forwarded as opaque JSON; nothing is decrypted.
package devrelay
