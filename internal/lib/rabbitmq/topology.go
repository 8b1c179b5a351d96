package rabbitmq

// Топология событий о платежах.
const (
	ExchangePayments     = "payments"
	QueuePaymentVerified = "payments.verified"
	RoutingKeyVerified   = "verified"
)

const (
	prefetchCount  = 10
	maxConcurrency = 10
)

// QueueConfig очередь и ключ, с которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// PaymentQueues возвращает очереди exchange payments.
func PaymentQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePaymentVerified, RoutingKey: RoutingKeyVerified},
	}
}
