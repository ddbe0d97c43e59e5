package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

var _ MessageInterface = (*Message)(nil)

// Message pairs a decoded Job with the AMQP delivery it arrived on, so the
// worker can ack or nack on the same channel.
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack confirms the message was processed.
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack rejects the message; with requeue false it dead-letters.
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetJob returns the decoded job.
func (m *Message) GetJob() *Job {
	return m.Job
}
