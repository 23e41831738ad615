// Package accounts provides user account management: registration, login
// with JWT access and refresh tokens, admin status changes, and transactional
// email notifications.
//
// Tokens:
//   - Access tokens are HS256 JWTs carrying the user id and role. They are
//     never stored and stay valid until they expire (one hour by default).
//   - Refresh tokens are HS256 JWTs signed with a separate secret carrying
//     only the user id. Every issued refresh token is persisted in a
//     RefreshTokens store which enforces a seven day expiry on its own. A
//     refresh token is usable while it verifies and is still stored; logout
//     deletes it. Refresh does not rotate the token.
//
// Stores:
//   - Users and RefreshTokens are interfaces. The repository package
//     implements both on bun (sqlite and postgres), mongostore on MongoDB,
//     redisstore implements RefreshTokens on Redis, and memstore keeps
//     everything in memory.
//
// Notifications:
//   - AdminService.CreateWithNotification hands the welcome email to a
//     WorkQueue and never fails because of it. ResendKYCNotification sends
//     inline and returns the failure.
//
// Email uniqueness is checked before insert and is not atomic.
package accounts
