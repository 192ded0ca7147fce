package rmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer 持有一条 confirm 模式的 AMQP channel 与其拓扑描述。
// Publish 串行完成 序列化 → 投递 → 等待 broker 确认；失败原样返回，
// 不做内部重试（重投递是 broker 侧策略，见 QueueProps.Retry）。
type Producer struct {
	ch    *amqp.Channel
	props QueueProps
}

// NewProducer 在给定连接上创建 channel，声明拓扑并开启 publisher confirm。
func NewProducer(conn *amqp.Connection, props QueueProps) (*Producer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := declare(ch, props); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &Producer{ch: ch, props: props}, nil
}

// declare 按拓扑描述声明交换机、队列与绑定
func declare(ch *amqp.Channel, props QueueProps) error {
	durable := !props.AutoDelete

	if err := ch.ExchangeDeclare(
		props.Exchange,
		props.Binding.ExchangeKind(),
		durable,
		props.AutoDelete,
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", props.Exchange, err)
	}

	args := amqp.Table{
		// 超限后 broker 丢弃最旧消息（drop-head），以淘汰代替阻塞实现背压
		"x-max-length-bytes": props.MaxLenBytes,
	}
	if _, err := ch.QueueDeclare(
		props.Queue,
		durable,
		props.AutoDelete,
		false, // exclusive
		false, // noWait
		args,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", props.Queue, err)
	}

	if err := ch.QueueBind(
		props.Queue,
		props.Binding.RoutingKey(),
		props.Exchange,
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", props.Queue, props.Exchange, err)
	}

	return nil
}

// Props 返回该生产者的拓扑描述
func (p *Producer) Props() QueueProps {
	return p.props
}

// Publish 序列化消息并发布到拓扑指定的交换机，阻塞等待 broker 确认。
// 序列化或传输失败返回给调用方。
func (p *Producer) Publish(ctx context.Context, msg any) error {
	body, err := Serialize(msg)
	if err != nil {
		return err
	}
	return p.PublishRaw(ctx, body)
}

// PublishRaw 发布已序列化的消息体并等待确认
func (p *Producer) PublishRaw(ctx context.Context, body []byte) error {
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.props.Exchange,
		p.props.Binding.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/msgpack",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.props.Exchange, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm from %s: %w", p.props.Exchange, err)
	}
	if !acked {
		return fmt.Errorf("message nacked by broker (exchange %s)", p.props.Exchange)
	}
	return nil
}

// Close 关闭底层 channel
func (p *Producer) Close() error {
	return p.ch.Close()
}
