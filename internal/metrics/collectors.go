// =============================================================================
// 文件: internal/metrics/collectors.go
// 描述: Prometheus 指标收集器定义
// =============================================================================
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EndpointStats 端点统计数据接口
type EndpointStats interface {
	GetPacketsSent() uint64
	GetPacketsReceived() uint64
	GetRetransmits() uint64
	GetAcksSent() uint64
	GetAcksReceived() uint64
	GetStaleAcks() uint64
	GetCorruptDropped() uint64
	GetOutOfOrderDropped() uint64
	GetDuplicateFrames() uint64
	GetDeliveryStalls() uint64
	GetBytesSent() uint64
	GetBytesReceived() uint64
	GetBytesDelivered() uint64
	GetWindowInUse() int
	GetWindowSize() int
	GetDeliveryBacklog() int
}

// EndpointCollector SWP 端点指标收集器
type EndpointCollector struct {
	statsProvider EndpointStats

	// 计数器描述符
	packetsSentDesc     *prometheus.Desc
	packetsReceivedDesc *prometheus.Desc
	retransmitsDesc     *prometheus.Desc
	acksSentDesc        *prometheus.Desc
	acksReceivedDesc    *prometheus.Desc
	staleAcksDesc       *prometheus.Desc
	corruptDroppedDesc  *prometheus.Desc
	outOfOrderDesc      *prometheus.Desc
	dupFramesDesc       *prometheus.Desc
	deliveryStallsDesc  *prometheus.Desc
	bytesSentDesc       *prometheus.Desc
	bytesReceivedDesc   *prometheus.Desc
	bytesDeliveredDesc  *prometheus.Desc

	// 仪表描述符
	windowInUseDesc     *prometheus.Desc
	windowSizeDesc      *prometheus.Desc
	deliveryBacklogDesc *prometheus.Desc
}

// NewEndpointCollector 创建端点收集器
func NewEndpointCollector(provider EndpointStats) *EndpointCollector {
	namespace := "swp"
	subsystem := "endpoint"

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, nil, nil,
		)
	}

	return &EndpointCollector{
		statsProvider: provider,

		packetsSentDesc:     desc("packets_sent_total", "Total protocol packets written to the channel"),
		packetsReceivedDesc: desc("packets_received_total", "Total valid protocol packets read from the channel"),
		retransmitsDesc:     desc("retransmits_total", "Total Go-Back-N retransmissions"),
		acksSentDesc:        desc("acks_sent_total", "Total cumulative acknowledgements sent"),
		acksReceivedDesc:    desc("acks_received_total", "Total acknowledgements accepted by the sender"),
		staleAcksDesc:       desc("stale_acks_total", "Total duplicate or stale acknowledgements ignored"),
		corruptDroppedDesc:  desc("corrupt_dropped_total", "Total frames dropped on checksum or length mismatch"),
		outOfOrderDesc:      desc("out_of_order_dropped_total", "Total duplicate or out-of-order data packets dropped"),
		dupFramesDesc:       desc("duplicate_frames_total", "Total ingress frames flagged as likely duplicates"),
		deliveryStallsDesc:  desc("delivery_stalls_total", "Total in-order packets refused because the delivery queue was full"),
		bytesSentDesc:       desc("bytes_sent_total", "Total payload bytes written to the channel"),
		bytesReceivedDesc:   desc("bytes_received_total", "Total raw bytes read from the channel"),
		bytesDeliveredDesc:  desc("bytes_delivered_total", "Total payload bytes delivered in order to the application"),

		windowInUseDesc:     desc("window_in_use", "Unacknowledged packets currently in flight"),
		windowSizeDesc:      desc("window_size", "Configured sliding window size"),
		deliveryBacklogDesc: desc("delivery_backlog", "In-order payloads waiting for the application"),
	}
}

// Describe 实现 prometheus.Collector
func (c *EndpointCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsSentDesc
	ch <- c.packetsReceivedDesc
	ch <- c.retransmitsDesc
	ch <- c.acksSentDesc
	ch <- c.acksReceivedDesc
	ch <- c.staleAcksDesc
	ch <- c.corruptDroppedDesc
	ch <- c.outOfOrderDesc
	ch <- c.dupFramesDesc
	ch <- c.deliveryStallsDesc
	ch <- c.bytesSentDesc
	ch <- c.bytesReceivedDesc
	ch <- c.bytesDeliveredDesc
	ch <- c.windowInUseDesc
	ch <- c.windowSizeDesc
	ch <- c.deliveryBacklogDesc
}

// Collect 实现 prometheus.Collector
func (c *EndpointCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.statsProvider

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.packetsSentDesc, s.GetPacketsSent())
	counter(c.packetsReceivedDesc, s.GetPacketsReceived())
	counter(c.retransmitsDesc, s.GetRetransmits())
	counter(c.acksSentDesc, s.GetAcksSent())
	counter(c.acksReceivedDesc, s.GetAcksReceived())
	counter(c.staleAcksDesc, s.GetStaleAcks())
	counter(c.corruptDroppedDesc, s.GetCorruptDropped())
	counter(c.outOfOrderDesc, s.GetOutOfOrderDropped())
	counter(c.dupFramesDesc, s.GetDuplicateFrames())
	counter(c.deliveryStallsDesc, s.GetDeliveryStalls())
	counter(c.bytesSentDesc, s.GetBytesSent())
	counter(c.bytesReceivedDesc, s.GetBytesReceived())
	counter(c.bytesDeliveredDesc, s.GetBytesDelivered())

	gauge(c.windowInUseDesc, float64(s.GetWindowInUse()))
	gauge(c.windowSizeDesc, float64(s.GetWindowSize()))
	gauge(c.deliveryBacklogDesc, float64(s.GetDeliveryBacklog()))
}
