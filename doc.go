// Package auth provides session authentication and role-based authorization
// for the Armonia admin console: identity provider sign-in, a persistent user
// directory, JWT session tokens, and route guards.
//
// Sign-in flow:
//   - Auther delegates credential verification to configured identity
//     providers (see the idp subpackages). A verified email is the join key
//     into the user directory; first sign-in creates a viewer record, and a
//     configured admin email is promoted on every sign-in.
//   - Tokens carry the user id, email, display name, and role. The role is
//     read from the directory record at issue time only, so a role change
//     takes effect on the next sign-in or refresh.
//
// Authorization:
//   - Roles form a strict hierarchy (viewer < editor < admin). Meets is the
//     single comparison point; Guard evaluates a raw token against a required
//     role and reports a structured decision alongside the error.
//   - RouteAuthenticator mounts the jwtware middleware, turning guard
//     failures into redirects to the sign-in or access denied pages.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     role change handler to describe sign-in, promotion, and role change
//     events. Sinks run best-effort so you can forward to a database or
//     queue without blocking authentication.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before JWTs are signed. Decorators may
//     enrich extension fields while protected claims (sub, iss, aud, exp,
//     email, role) remain immutable.
package auth
