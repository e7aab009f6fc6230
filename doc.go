// Package accounts orchestrates the account lifecycle for a multi-tenant
// application: registration, login, two-factor challenge, email
// verification, password reset, deletion, and external-identity linkage.
//
// Two stores, one orchestrator:
//   - The credential store (CredentialGateway) owns identity records:
//     password hashes, lockout counters, the email-confirmed flag. A
//     bun-backed LocalCredentialStore is included; deployments with an
//     external identity backend bind their own gateway.
//   - The profile store (UserProfileStore) owns application profiles:
//     display name, last login, two-factor state. Mutations run identity
//     first, profile second, and a failure on either side is never masked by
//     the other succeeding.
//
// Roles:
//   - Memberships are site-scoped rows; the effective role string is derived
//     on every read by RoleResolver, which applies the implication table
//     (Host grants Admin and Registered) and is never persisted.
//
// Side effects:
//   - Every operation branch emits one AuditEntry. Notifications, change
//     events, and session issuance are explicit collaborators attached with
//     the Manager's With* builders; all of them run best-effort except
//     session issuance, which is part of the authenticated terminal state.
package accounts
