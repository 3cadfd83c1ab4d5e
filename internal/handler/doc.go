// Package handler implements the HTTP API of the nilor editor.
//
// Routes are served by a chi router with request ids, panic recovery, zap
// request logging and CORS. Graph documents travel in the persisted
// document format; nodes and edges travel as their domain JSON.
//
// # Errors
//
// Errors are returned as JSON with an {error, details} structure. Editor
// error kinds map to fixed status codes:
//
//   - not found: 404
//   - invalid endpoint: 422
//   - malformed document, dangling reference, unknown kind, bad request: 400
//   - storage unavailable: 503
//
// # Realtime
//
// GET /events streams editor events as Server-Sent Events and GET /live
// accepts canvas intents over a websocket. Both are mounted by NewRouter
// when provided.
package handler
