// Package metrics 维护网关的 Prometheus 指标，经由 /metrics 暴露。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Signals 统计入站信号处理结果（accepted|invalid|failed）。
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_signals_total",
			Help: "Webhook signals received, by handling result",
		},
		[]string{"result"},
	)

	// Orders 统计订单提交结果。
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_orders_total",
			Help: "Order submissions, by outcome and side",
		},
		[]string{"outcome", "side"},
	)

	// Logins 统计对经纪商登录端点的实际调用次数。
	Logins = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_logins_total",
			Help: "Login calls issued to the brokerage",
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, Orders, Logins)
}

// Handler 返回 Prometheus 文本格式的导出处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}
