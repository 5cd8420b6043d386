// Package http provides HTTP handlers and middleware for the sublease marketplace API.
//
// The router exposes the following endpoints:
//   - POST /signup, GET /verify?token=: account creation. Signup answers 201 with the
//     `userDTO`, or 202 when email verification is required and a link was mailed.
//   - POST /login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the `X-Session-Token`
//     header and a `session_token` cookie. POST /refresh rotates it.
//   - POST /logout: revokes the current session token and clears the cookie (204).
//   - GET /profile, GET /users: the signed-in user with their listings, and the user directory.
//     GET /profile/{id} is public and shows any user with their listings.
//   - GET /listings/{id}, POST /listings, PUT /listings/{id}, DELETE /listings/{id}: listing
//     CRUD exchanging the `listingDTO` payload defined in listing_handler.go. Mutations are
//     owner-only.
//   - GET /api/listings: listings that carry coordinates, for the map view.
//   - GET /search_results: filtered listing search. See parseSearchParams for the query keys.
//   - POST /create_booking_request, GET /booking_request/{id},
//     DELETE /delete_booking_request/{id}, GET /booking_requests/incoming,
//     GET /booking_requests/outgoing, POST /booking_requests/{id}/approve and
//     POST /booking_requests/{id}/reject: the booking request workflow in booking_handler.go.
//   - GET /health and GET /metrics (Prometheus exposition).
//
// Errors share one body shape: {"error_code","message","errors"}.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
