package api

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client-side API metrics
type Metrics struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Refreshes *prometheus.CounterVec
}

// NewMetrics registers the API metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bugtrack_api_requests_total",
			Help: "API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bugtrack_api_request_duration_seconds",
			Help:    "Latency of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bugtrack_token_refreshes_total",
			Help: "Token refresh attempts by outcome",
		}, []string{"outcome"}),
	}
}

// RecordRefresh counts one refresh attempt. Safe on a nil receiver.
func (m *Metrics) RecordRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

// Instrument returns a middleware recording request counts and latency
func Instrument(m *Metrics) Middleware {
	return instrument{m: m}
}

type instrument struct {
	m *Metrics
}

func (i instrument) OnRequest(_ context.Context, req *Request) (*Request, error) {
	return req, nil
}

func (i instrument) OnResponse(_ context.Context, req *Request, resp *Response, _ SendFunc) (*Response, error) {
	if resp.Request != nil {
		req = resp.Request
	}
	route := req.Route
	if route == "" {
		route = req.Path
	}
	i.m.Requests.WithLabelValues(req.Method, route, strconv.Itoa(resp.StatusCode)).Inc()
	if !req.SentAt().IsZero() {
		i.m.Latency.WithLabelValues(route).Observe(time.Since(req.SentAt()).Seconds())
	}
	return resp, nil
}
