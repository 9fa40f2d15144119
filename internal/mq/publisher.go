package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/FrankyKyaw/instapay/internal/config"
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/streadway/amqp"
)

// SettlementEvent 结算结果事件，推送给下游记账系统（影子账本的消费方）
type SettlementEvent struct {
	TaskId        int64     `json:"task_id"`
	EmployeeId    string    `json:"employee_id"`
	Path          string    `json:"path"` // payout, accrual, payout_failed
	Amount        float64   `json:"amount"`
	TxHash        string    `json:"tx_hash,omitempty"`
	CreditBalance float64   `json:"credit_balance,omitempty"`
	ShadowBalance float64   `json:"shadow_balance,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher RabbitMQ结算事件发布器
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func Init(cfg config.MQConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.Queue, // queue name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare RabbitMQ queue: %w", err)
	}

	logger.Info("Connected to RabbitMQ, queue declared: %s", cfg.Queue)
	return &Publisher{conn: conn, channel: ch, queue: q}, nil
}

// PublishSettlement 发布结算事件
func (p *Publisher) PublishSettlement(event SettlementEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	err = p.channel.Publish(
		"",           // exchange
		p.queue.Name, // routing key (queue name)
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish settlement event: %w", err)
	}
	return nil
}

// Close 关闭连接
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
