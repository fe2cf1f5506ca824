// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth is the credential-authentication core of Gatehouse.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their
// constructors:
//   - NewAccount - creates an Account with a normalized identifier and
//     a pre-computed password hash
//   - NewSession - creates a Session with a validated account and expiry
//
// Direct struct initialization bypasses validation and may create
// invalid state. Repository implementations receive pre-validated types
// from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Authenticator - registration, credential verification, secret
//     change, account deletion, and resolving the current account from
//     a session handle or bearer token
//   - SessionManager - issuing, resolving, and revoking opaque session
//     handles
//   - TokenService - issuing and verifying signed bearer tokens
//
// Services are created with New* constructors that validate their
// dependencies. Storage lives behind the AccountRepository and
// SessionRepository interfaces; the memory and postgres subpackages
// provide implementations.
package auth
