package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the conversational engine. The fiber /metrics endpoint
// exposes these alongside the HTTP middleware metrics.
var (
	MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeorganizer_messages_handled_total",
		Help: "Inbound messages processed, by modality",
	}, []string{"modality"})

	ClassificationsDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifeorganizer_classifications_degraded_total",
		Help: "Classification results produced by a fallback decode stage",
	})

	ItemsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifeorganizer_items_created_total",
		Help: "Items created in the external store",
	})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifeorganizer_reminders_sent_total",
		Help: "Scheduled reminders sent, by trigger",
	}, []string{"trigger"})
)
