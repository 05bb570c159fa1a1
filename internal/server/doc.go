// Package server implements the token backend.
//
// Clients never hold platform secrets. They ask the backend instead:
//
//	POST /token/spotify  -> {"access_token": "...", "token_type": "Bearer", "expires_in": 3600}
//	POST /token/apple    -> {"token": "<ES256 developer token>", "expires_at": "..."}
//	GET  /health         -> {"status": "ok"}
//	GET  /metrics        -> Prometheus exposition
//
// The Spotify token comes from the client-credentials grant and is cached until it expires.
// The Apple developer token is signed per request from the team's .p8 key.
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux]. [Middleware] is applied in reverse order so the first one added runs
// outermost. Token routes sit on a mounted router that adds [RequireAPIKey]; health and metrics are public.
package server
