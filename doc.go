// Package sessionauth provides role-scoped authentication primitives (JWT
// issuance, stateful session registry, HTTP helpers) for systems where one
// person may hold independent accounts under several roles.
//
// Identity model:
//   - Every credential, token, and session is keyed by (role, provider,
//     provider_key). The same provider key registered under two roles yields
//     two unrelated principals with separate secrets and sessions.
//   - Roles form a flat, closed set. There is no hierarchy: a token minted
//     for one role never satisfies a guard pinned to another.
//
// Session lifecycle:
//   - Login and Join open a registry-backed session whose refresh token is
//     single use. Refresh verifies the token, rotates it in place with a
//     conditional update, and returns a fresh pair. A replayed refresh token
//     loses the race and is treated as an unknown session.
//   - Logout and RevokeAll terminate sessions server side; revocation is
//     permanent and idempotent.
//
// Verification:
//   - TokenService signs and verifies both token kinds. Guard layers the
//     role check on top for stateless access-token verification, and the
//     jwtware middleware adapts both to HTTP routes.
package sessionauth
