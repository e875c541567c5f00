// Package metrics exposes prometheus instrumentation for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts inbound chat events by kind (command, callback, text).
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solsmith_events_total",
		Help: "Inbound chat events processed, by kind.",
	}, []string{"kind"})

	// GenerationsTotal counts generation attempts by outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solsmith_generations_total",
		Help: "Vanity keypair generation attempts, by outcome.",
	}, []string{"outcome"})

	// GenerationDuration observes how long grind invocations take.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "solsmith_generation_duration_seconds",
		Help:    "Wall time of keygen grind invocations.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	})

	// ActiveSessions tracks chats with a live session entry.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solsmith_active_sessions",
		Help: "Chats with an active conversation session.",
	})
)
