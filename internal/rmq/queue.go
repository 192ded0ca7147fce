package rmq

import (
	"fmt"
	"time"
)

// Network 标识 validator 所在网络，作为所有 AMQP 对象名的前缀。
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork 校验配置中的网络标识
func ParseNetwork(s string) (Network, error) {
	switch n := Network(s); n {
	case NetworkMainnet, NetworkDevnet, NetworkTestnet:
		return n, nil
	default:
		return "", fmt.Errorf("invalid network %q (want mainnet / devnet / testnet)", s)
	}
}

// StartupType 标识队列承载的启动阶段消息范围
type StartupType int

const (
	// StartupTypeNormal 仅实时流消息
	StartupTypeNormal StartupType = iota
	// StartupTypeStartup 仅启动回放消息
	StartupTypeStartup
	// StartupTypeAll 全部消息
	StartupTypeAll
)

// StartupTypeFromFlag 从账户选择器的三态 startup 配置推导队列启动类型
func StartupTypeFromFlag(v *bool) StartupType {
	switch {
	case v == nil:
		return StartupTypeAll
	case *v:
		return StartupTypeStartup
	default:
		return StartupTypeNormal
	}
}

func (t StartupType) String() string {
	switch t {
	case StartupTypeNormal:
		return "normal"
	case StartupTypeStartup:
		return "startup"
	case StartupTypeAll:
		return "startup-all"
	default:
		return fmt.Sprintf("startup-type(%d)", int(t))
	}
}

// exchangeSuffix 返回交换机名中的启动阶段片段
func (t StartupType) exchangeSuffix() string {
	switch t {
	case StartupTypeStartup:
		return ".startup"
	case StartupTypeAll:
		return ".startup-all"
	default:
		return ""
	}
}

type bindingKind int

const (
	bindingFanout bindingKind = iota
	bindingRouted
)

// Binding 描述队列与交换机的绑定方式：
// fanout 广播到所有消费者副本（高流量 per-validator 类别）；
// routed 按 routing key 选择性投递。
type Binding struct {
	kind bindingKind
	key  string
}

func FanoutBinding() Binding {
	return Binding{kind: bindingFanout}
}

func RoutedBinding(key string) Binding {
	return Binding{kind: bindingRouted, key: key}
}

// ExchangeKind 返回 AMQP 交换机类型
func (b Binding) ExchangeKind() string {
	if b.kind == bindingFanout {
		return "fanout"
	}
	return "direct"
}

// RoutingKey 返回绑定 / 发布用的 routing key，fanout 时为空
func (b Binding) RoutingKey() string {
	return b.key
}

// RetryProps 描述 broker 侧的重投递策略：固定的最大尝试次数、
// 初始延迟建议值与指数退避上限。尝试耗尽即为永久投递失败，由本系统之外处理。
type RetryProps struct {
	MaxTries  uint64
	DelayHint time.Duration
	MaxDelay  time.Duration
}

// QueueProps 是一个事件类别的完整拓扑描述，供宿主声明 broker 对象。
// 纯数据，不含任何传输层类型。
type QueueProps struct {
	Exchange string
	Queue    string
	Binding  Binding
	Prefetch uint16

	// MaxLenBytes 是队列保留字节上限，超出后 broker 丢弃最旧消息
	//（通过淘汰而非阻塞实现背压）
	MaxLenBytes int64

	// AutoDelete 仅对临时调试队列为 true
	AutoDelete bool

	Retry *RetryProps
}

const (
	mib = 1024 * 1024
	gib = 1024 * mib
)

// NewAccountsQueue 推导账户/指令/槽位事件流的拓扑。
// 交换机名 {network}{启动阶段片段}.accounts，队列名追加 .indexer 与环境后缀。
func NewAccountsQueue(network Network, startupType StartupType, suffix Suffix) (QueueProps, error) {
	exchange := fmt.Sprintf("%s%s.accounts", network, startupType.exchangeSuffix())
	queue, err := suffix.Format(exchange + ".indexer")
	if err != nil {
		return QueueProps{}, err
	}

	var maxLenBytes int64
	switch {
	case suffix.IsDebug():
		maxLenBytes = 100 * mib
	case startupType == StartupTypeNormal:
		maxLenBytes = 4 * gib
	default:
		maxLenBytes = 50 * gib
	}

	return QueueProps{
		Exchange:    exchange,
		Queue:       queue,
		Binding:     FanoutBinding(),
		Prefetch:    4096,
		MaxLenBytes: maxLenBytes,
		AutoDelete:  suffix.IsDebug(),
		Retry: &RetryProps{
			MaxTries:  3,
			DelayHint: 500 * time.Millisecond,
			MaxDelay:  10 * time.Minute,
		},
	}, nil
}

// NewJobsQueue 推导后台任务分发队列的拓扑（表刷新、槽位重建等请求）。
// 选择性绑定：任务按目标启动类型作为 routing key 路由。
func NewJobsQueue(sender string, startupType StartupType, suffix Suffix) (QueueProps, error) {
	exchange := fmt.Sprintf("%s.jobs", sender)
	queue, err := suffix.Format(exchange + ".runner")
	if err != nil {
		return QueueProps{}, err
	}

	return QueueProps{
		Exchange:    exchange,
		Queue:       queue,
		Binding:     RoutedBinding(startupType.String()),
		Prefetch:    1,
		MaxLenBytes: 100 * mib,
		AutoDelete:  suffix.IsDebug(),
		Retry: &RetryProps{
			MaxTries:  5,
			DelayHint: 5 * time.Second,
			MaxDelay:  10 * time.Minute,
		},
	}, nil
}
