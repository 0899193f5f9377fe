// Package api implements Doorman's HTTP API.
//
// It serves two purposes. Operators use it to inspect the door (registered
// devices, the access trail). And it backs two of the door capabilities:
// an approval queue (Authenticator) that holds each detected device until
// someone decides on it, and a lock endpoint (Locker) that re-arms the door.
//
// # Routes
//
//	GET  /api/v1/health               public
//	GET  /api/v1/devices              bearer JWT
//	GET  /api/v1/approvals            bearer JWT
//	POST /api/v1/approvals/{id}       bearer JWT, {"decision":"allow"|"deny"}
//	GET  /api/v1/lock                 bearer JWT
//	POST /api/v1/lock                 bearer JWT, {"action":"lock"}
//	GET  /api/v1/events               bearer JWT, ?kind=&limit=&offset=
//
// Tokens are HS256 JWTs signed with security.jwt.secret; mint one with
// "doorman token".
package api
