// Package metrics объявляет метрики Prometheus сервиса аутентификации.
// Все метрики регистрируются в реестре по умолчанию через promauto
// и отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskflow"

// Значения метки result для логина.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginValidationError    = "validation_error"
	LoginInternalError      = "error"
)

// LoginAttemptsTotal считает попытки входа.
// Метка result: success, invalid_credentials, validation_error, error.
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal считает запросы на регистрацию.
// Метки: mode (direct, queued), result (created, queued, conflict,
// validation_error, queue_unavailable, error).
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration requests, by mode and result.",
	},
	[]string{"mode", "result"},
)

// WorkerMessagesTotal считает сообщения, обработанные воркером регистрации.
// Метка result: processed, duplicate, rejected, retryable_failure.
var WorkerMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registration_worker_messages_total",
		Help:      "Total number of registration queue messages handled by the worker, by result.",
	},
	[]string{"result"},
)

// WorkerProcessingDuration время обработки одного сообщения воркером.
var WorkerProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "registration_worker_processing_duration_seconds",
		Help:      "Duration of registration message processing from delivery to acknowledgement decision.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// TokenValidationsTotal считает проверки bearer-токенов.
// Метка result: valid, invalid.
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token validations, by result.",
	},
	[]string{"result"},
)
