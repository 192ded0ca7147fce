package metrics

import "github.com/zeromicro/go-zero/core/metric"

// 事件流计数器。recv 系列在选择前计数，send 系列在 broker 确认后计数，
// 两者的差值即被选择引擎过滤或发送失败的量。
var (
	AcctRecvs = newCounter("acct_recvs_total", "account updates received from the stream")
	AcctSends = newCounter("acct_sends_total", "account updates acknowledged by the broker")

	TxnRecvs = newCounter("txn_recvs_total", "successful transactions received")
	TxnErrs  = newCounter("txn_errs_total", "failed transactions skipped")
	InsSends = newCounter("ins_sends_total", "instruction notifications acknowledged by the broker")

	StatusRecvs = newCounter("status_recvs_total", "slot status updates received")
	StatusSends = newCounter("status_sends_total", "slot status updates acknowledged by the broker")

	// Errs 单条事件级错误：索引解析失败、序列化/发布失败等，流不中断
	Errs = newCounter("errs_total", "per-event errors (event dropped, stream continues)")

	Reconnects = newCounter("reconnects_total", "stream reconnect attempts")
)

func newCounter(name, help string) metric.CounterVec {
	return metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: "geyser",
		Subsystem: "mq",
		Name:      name,
		Help:      help,
	})
}
