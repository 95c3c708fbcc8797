package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"WorkoutMate/config"
	"WorkoutMate/pkg/logger"
)

// 截止提醒的拓扑：scheduler 发布到 direct exchange，worker 从持久化队列消费
const (
	ReminderExchange   = "workoutmate.reminders"
	ReminderQueue      = "reminders.deadline"
	ReminderRoutingKey = "reminder.deadline"
)

var (
	conn     *amqp.Connection
	connMu   sync.RWMutex
	connOnce sync.Once
	initErr  error
)

func Init() error {
	connOnce.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			initErr = fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			return
		}

		if err := declareTopology(c); err != nil {
			_ = c.Close()
			initErr = err
			return
		}

		connMu.Lock()
		conn = c
		connMu.Unlock()

		logger.Logger.Info("RabbitMQ connected",
			zap.String("component", "rabbitmq"),
			zap.String("addr", config.Cfg.RabbitMQAddr),
		)
	})

	return initErr
}

func declareTopology(c *amqp.Connection) error {
	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ReminderExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ReminderExchange, err)
	}
	if _, err := ch.QueueDeclare(ReminderQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", ReminderQueue, err)
	}
	if err := ch.QueueBind(ReminderQueue, ReminderRoutingKey, ReminderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", ReminderQueue, err)
	}
	return nil
}

func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

// Close 关闭发布通道与连接
func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil {
		_ = publisherCh.Close()
		publisherCh = nil
	}
	pubMutex.Unlock()

	connMu.Lock()
	defer connMu.Unlock()
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case err := <-done:
		conn = nil
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
