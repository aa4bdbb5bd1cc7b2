// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - POST /auth/login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","principal":{"user_id","is_admin"}} with the token also
//     surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /auth/refresh: rotates the token from the body, Authorization header or
//     cookie and extends its expiry. Not guarded by the session middleware.
//   - POST /auth/logout: revokes the current session and clears the cookie.
//   - GET /auth/me: returns the principal of the current session.
//   - GET /booking/all_bookings?start&end&status&room_id&mine: {"bookings":[...],
//     "warnings":[...]}. Timestamps are naive wall-clock strings
//     (2006-01-02T15:04:05) in the configured calendar zone.
//   - POST /booking, GET /booking/{id}, PUT /booking/{id}, POST /booking/{id}/cancel:
//     booking management exchanging the `bookingDTO` payload defined in
//     booking_handler.go. A room double-booking answers 409.
//   - GET /booking/rooms: the room catalog as a bare JSON array.
//   - GET/POST /admin/rooms, PUT/DELETE /admin/rooms/{id}: administrator room management.
//   - GET/POST /admin/users, PUT/DELETE /admin/users/{id}: administrator employee
//     management; the listing is a bare JSON array of employees.
//   - GET /admin/dashboard: today's booking counts by derived status, rooms in
//     use and the next upcoming bookings (administrators only).
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
