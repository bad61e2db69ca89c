// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package passkey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// metricsNamespace is the Prometheus namespace for all passkey metrics.
	metricsNamespace = "passkey"

	labelOperation = "operation"
	labelStatus    = "status"

	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	// ceremoniesTotal counts completed verification ceremonies by operation
	// and outcome.
	ceremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ceremonies_total",
			Help:      "Total number of verification ceremonies by operation and status",
		},
		[]string{labelOperation, labelStatus},
	)

	// challengesIssuedTotal counts issued challenges by operation.
	challengesIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of ceremony challenges issued by operation",
		},
		[]string{labelOperation},
	)

	// cloneWarningsTotal counts authentications rejected by the signature
	// counter check. Each increment is a candidate cloned credential.
	cloneWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clone_warnings_total",
			Help:      "Total number of authentications rejected for a non-advancing signature counter",
		},
	)

	// fallbackAttemptsTotal counts password fallback attempts by outcome.
	fallbackAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "fallback",
			Name:      "attempts_total",
			Help:      "Total number of password fallback attempts by status",
		},
		[]string{labelStatus},
	)

	// fallbackLockoutsTotal counts accounts entering the lockout window.
	fallbackLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "fallback",
			Name:      "lockouts_total",
			Help:      "Total number of fallback lockouts triggered",
		},
	)
)

func recordCeremony(op Operation, success bool) {
	status := statusFailure
	if success {
		status = statusSuccess
	}
	ceremoniesTotal.WithLabelValues(string(op), status).Inc()
}

func recordChallengeIssued(op Operation) {
	challengesIssuedTotal.WithLabelValues(string(op)).Inc()
}

func recordFallbackAttempt(success bool) {
	status := statusFailure
	if success {
		status = statusSuccess
	}
	fallbackAttemptsTotal.WithLabelValues(status).Inc()
}
