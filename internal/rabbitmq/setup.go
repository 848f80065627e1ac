package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

const (
	// RegistrationExchange direct-exchange для заявок на регистрацию.
	RegistrationExchange = "registrations"
	// RegistrationQueueName очередь, которую слушает воркер регистрации.
	RegistrationQueueName = "user-registration-queue"
	// RegistrationRoutingKey ключ маршрутизации заявок.
	RegistrationRoutingKey = "user.register"
)

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetRegistrationQueues возвращает очереди, необходимые регистрации.
func GetRegistrationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: RegistrationQueueName, RoutingKey: RegistrationRoutingKey},
	}
}

// SetupChannel открывает канал, объявляет exchange и очереди (если их ещё нет)
// и привязывает очереди к exchange.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			exchange,
			false,
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
