// Package auth provides authentication for the MoIP Manager API.
//
// The manager runs with a single operator account configured in
// config.yaml. It implements:
//   - Argon2id password hashing (OWASP 2025 recommendation) with a
//     plaintext fallback for development deployments
//   - Short-lived HS256 JWT access tokens validated by signature only
//
// This is authentication for the manager's own HTTP API; the controller's
// REST credentials are a separate concern handled by the moip/rest client.
package auth
