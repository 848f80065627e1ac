package rabbitmq

import "github.com/streadway/amqp"

func publish(ch *amqp.Channel, exchange, routingkey string, msg amqp.Publishing) error {
	return ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		msg,
	)
}
