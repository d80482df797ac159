package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shop_order_service",
			Subsystem: "orders",
			Name:      "checkouts_total",
			Help:      "Total number of cart checkout attempts by result",
		},
		[]string{"result"},
	)

	guestOrdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shop_order_service",
			Subsystem: "orders",
			Name:      "guest_orders_total",
			Help:      "Total number of guest orders created",
		},
	)

	stockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shop_order_service",
			Subsystem: "orders",
			Name:      "stock_conflicts_total",
			Help:      "Total number of requests rejected due to insufficient stock",
		},
	)
)
