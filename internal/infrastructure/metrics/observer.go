package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-push-notify/internal/domain"
	promclient "github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports dispatch metrics to Prometheus.
type PrometheusObserver struct {
	sendDuration *promclient.HistogramVec
	deliveries   *promclient.CounterVec
	pruned       *promclient.CounterVec
	dispatches   *promclient.CounterVec
}

// NewPrometheusObserver registers the push metrics on reg. Registering twice
// against the same registry reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "push"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	o := &PrometheusObserver{
		sendDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "channel_send_duration_seconds",
			Help:      "Latency of one channel send call covering all its destinations.",
			Buckets:   promclient.DefBuckets,
		}, []string{"channel"}),
		deliveries: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Per-destination delivery outcomes.",
		}, []string{"channel", "outcome"}),
		pruned: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_pruned_total",
			Help:      "Subscriptions removed after a permanent failure.",
		}, []string{"result"}),
		dispatches: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Dispatch cycles by kind.",
		}, []string{"kind"}),
	}

	var err error
	if o.sendDuration, err = register(reg, o.sendDuration); err != nil {
		return nil, fmt.Errorf("register send histogram: %w", err)
	}
	if o.deliveries, err = register(reg, o.deliveries); err != nil {
		return nil, fmt.Errorf("register delivery counter: %w", err)
	}
	if o.pruned, err = register(reg, o.pruned); err != nil {
		return nil, fmt.Errorf("register prune counter: %w", err)
	}
	if o.dispatches, err = register(reg, o.dispatches); err != nil {
		return nil, fmt.Errorf("register dispatch counter: %w", err)
	}
	return o, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// RecordSend tracks one channel call and the outcome of each destination.
func (o *PrometheusObserver) RecordSend(channel domain.ChannelType, duration time.Duration, results []domain.DeliveryResult) {
	if o == nil {
		return
	}
	o.sendDuration.WithLabelValues(string(channel)).Observe(duration.Seconds())
	for _, r := range results {
		o.deliveries.WithLabelValues(string(channel), string(r.Outcome)).Inc()
	}
}

func (o *PrometheusObserver) RecordPrune(err error) {
	if o == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.pruned.WithLabelValues(result).Inc()
}

func (o *PrometheusObserver) RecordDispatch(kind string) {
	if o == nil {
		return
	}
	o.dispatches.WithLabelValues(kind).Inc()
}
