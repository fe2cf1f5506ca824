// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result constants for authentication metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Logins is the counter for authentication attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_logins_total",
		Help: "Total number of authentication attempts by mode and result",
	},
	[]string{"mode", "result"},
)

// Registrations is the counter for account registrations.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_registrations_total",
		Help: "Total number of account registrations by result",
	},
	[]string{"result"},
)

// SessionsCreated counts issued session handles.
var SessionsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatehouse_sessions_created_total",
		Help: "Total number of sessions created",
	},
)

// SessionsRevoked counts revoked session handles.
var SessionsRevoked = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatehouse_sessions_revoked_total",
		Help: "Total number of sessions revoked",
	},
)

// TokensIssued counts issued bearer tokens.
var TokensIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatehouse_tokens_issued_total",
		Help: "Total number of bearer tokens issued",
	},
)

// TokensRejected counts failed token verifications by kind.
var TokensRejected = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatehouse_tokens_rejected_total",
		Help: "Total number of rejected bearer tokens by failure kind",
	},
	[]string{"kind"},
)

// RegisterMetrics registers auth package metrics with the given
// Prometheus registry. Call at startup so the counters appear on
// /metrics. Panics if registration fails (prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(Registrations)
	reg.MustRegister(SessionsCreated)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(TokensIssued)
	reg.MustRegister(TokensRejected)
}

// RecordLogin increments the login counter.
func RecordLogin(mode Mode, result string) {
	Logins.WithLabelValues(string(mode), result).Inc()
}

// RecordRegistration increments the registration counter.
func RecordRegistration(result string) {
	Registrations.WithLabelValues(result).Inc()
}

// RecordSessionCreated increments the session creation counter.
func RecordSessionCreated() {
	SessionsCreated.Inc()
}

// RecordSessionRevoked increments the session revocation counter.
func RecordSessionRevoked() {
	SessionsRevoked.Inc()
}

// RecordTokenIssued increments the token issuance counter.
func RecordTokenIssued() {
	TokensIssued.Inc()
}

// RecordTokenRejected increments the token rejection counter.
func RecordTokenRejected(kind string) {
	TokensRejected.WithLabelValues(kind).Inc()
}
