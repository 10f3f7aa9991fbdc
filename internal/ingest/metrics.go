package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_ingest_messages_total",
		Help: "Messages received on the ingest socket",
	})

	decodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthmeter_ingest_decode_errors_total",
		Help: "Messages that could not be decoded",
	})
)
