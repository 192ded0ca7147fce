package svc

import (
	"context"
	"fmt"
	"time"

	"geyser-mq-sol/internal/config"
	"geyser-mq-sol/internal/rmq"
	"geyser-mq-sol/internal/selector"
	"geyser-mq-sol/internal/tokenreg"
	"geyser-mq-sol/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 持有转发服务的全部共享资源。
// 选择器构造完成并完成一次性注册表填充后即视为只读，可被任意并发读取。
type ServiceContext struct {
	Config  config.Config
	AcctSel *selector.AccountSelector
	InsSel  *selector.InstructionSelector

	Producer *rmq.Producer

	conn *amqp.Connection
	rdb  *redis.Client
}

// NewServiceContext 构造服务上下文：解析选择器配置、建立 broker 连接、
// 声明拓扑并在流启动前完成排除名单填充。任何配置解析失败都是启动期致命错误。
func NewServiceContext(ctx context.Context, c config.Config) (*ServiceContext, error) {
	acctSel, err := selector.NewAccountSelector(c.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to create account selector: %w", err)
	}
	insSel, err := selector.NewInstructionSelector(c.Instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to create instruction selector: %w", err)
	}

	network, err := c.Amqp.NetworkID()
	if err != nil {
		return nil, err
	}
	suffix, err := c.Amqp.Suffix()
	if err != nil {
		return nil, err
	}

	props, err := rmq.NewAccountsQueue(network, acctSel.Startup(), suffix)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(c.Amqp.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	producer, err := rmq.NewProducer(conn, props)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	sc := &ServiceContext{
		Config:   c,
		AcctSel:  acctSel,
		InsSel:   insSel,
		Producer: producer,
		conn:     conn,
	}

	// 排除名单必须在任何并发选择判定开始前完成一次性填充
	if acctSel.ScreenTokenRegistry() {
		if c.TokenRegistry.RedisAddr != "" {
			sc.rdb = redis.NewClient(&redis.Options{Addr: c.TokenRegistry.RedisAddr})
		}
		loader := tokenreg.NewLoader(
			sc.rdb,
			c.TokenRegistry.URL,
			time.Duration(c.TokenRegistry.CacheTTLHours)*time.Hour,
		)
		mints, err := loader.Load(ctx)
		if err != nil {
			sc.Close()
			return nil, fmt.Errorf("failed to load token registry: %w", err)
		}
		acctSel.InitTokenRegistry(mints)
	}

	logger.Infof("service context ready: exchange=%s queue=%s startup=%s",
		props.Exchange, props.Queue, acctSel.Startup())
	return sc, nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		_ = sc.Producer.Close()
	}
	if sc.conn != nil {
		_ = sc.conn.Close()
	}
	if sc.rdb != nil {
		_ = sc.rdb.Close()
	}
}
