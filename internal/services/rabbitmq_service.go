package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Queue names
const (
	GenerationQueue      = "campaign_generations"
	GenerationDelayQueue = "campaign_generations.delay"
	DispatchQueue        = "message_dispatches"
)

// RabbitMQService carries both generation and dispatch traffic. Delayed
// generation passes go through a dead-letter delay queue: messages sit
// there with a per-message TTL and dead-letter into the work queue when
// the delay expires.
type RabbitMQService struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQService() (*RabbitMQService, error) {
	host := getEnv("RABBITMQ_HOST", "localhost")
	port := getEnv("RABBITMQ_PORT", "5672")
	user := getEnv("RABBITMQ_USER", "guest")
	pass := getEnv("RABBITMQ_PASS", "guest")

	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	service := &RabbitMQService{
		conn:    conn,
		channel: channel,
	}

	if err := service.declareQueues(); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logrus.Info("RabbitMQ service initialized")
	return service, nil
}

func (s *RabbitMQService) declareQueues() error {
	for _, queue := range []string{GenerationQueue, DispatchQueue} {
		_, err := s.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	_, err := s.channel.QueueDeclare(
		GenerationDelayQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": GenerationQueue,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare delay queue: %w", err)
	}
	return nil
}

// PublishGeneration enqueues a generation pass, optionally delayed
func (s *RabbitMQService) PublishGeneration(tenantID, campaignID string, stepID *string, delay time.Duration) error {
	job := models.GenerationJob{
		TenantID:   tenantID,
		CampaignID: campaignID,
		StepID:     stepID,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal generation job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	}

	queue := GenerationQueue
	if delay > 0 {
		queue = GenerationDelayQueue
		publishing.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	if err := s.channel.Publish("", queue, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish generation job: %w", err)
	}

	logrus.Debugf("Generation job published for campaign %s (delay %s)", campaignID, delay)
	return nil
}

// PublishDispatch enqueues one dispatch attempt
func (s *RabbitMQService) PublishDispatch(tenantID, messageID string) error {
	job := models.DispatchJob{
		TenantID:  tenantID,
		MessageID: messageID,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	err = s.channel.Publish("", DispatchQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish dispatch job: %w", err)
	}
	return nil
}

// GenerationHandler processes one generation job
type GenerationHandler func(job models.GenerationJob) error

// DispatchHandler processes one dispatch job
type DispatchHandler func(job models.DispatchJob) error

// ConsumeGenerations consumes the generation queue until stop is closed.
// Manual acks with prefetch 1: handler errors are requeued, poison payloads
// are dropped.
func (s *RabbitMQService) ConsumeGenerations(handler GenerationHandler, stop <-chan struct{}) error {
	return s.consume(GenerationQueue, stop, func(body []byte) error {
		var job models.GenerationJob
		if err := json.Unmarshal(body, &job); err != nil {
			return errUnmarshal(GenerationQueue, err)
		}
		return handler(job)
	})
}

// ConsumeDispatches consumes the dispatch queue until stop is closed
func (s *RabbitMQService) ConsumeDispatches(handler DispatchHandler, stop <-chan struct{}) error {
	return s.consume(DispatchQueue, stop, func(body []byte) error {
		var job models.DispatchJob
		if err := json.Unmarshal(body, &job); err != nil {
			return errUnmarshal(DispatchQueue, err)
		}
		return handler(job)
	})
}

type unmarshalError struct {
	queue string
	err   error
}

func (e *unmarshalError) Error() string {
	return fmt.Sprintf("failed to unmarshal job from %s: %v", e.queue, e.err)
}

func errUnmarshal(queue string, err error) error {
	return &unmarshalError{queue: queue, err: err}
}

func (s *RabbitMQService) consume(queue string, stop <-chan struct{}, handle func([]byte) error) error {
	channel, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}

	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := channel.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	logrus.Infof("Consumer started on queue %s", queue)

	go func() {
		for {
			select {
			case <-stop:
				logrus.Infof("Consumer on %s stopped", queue)
				channel.Close()
				return
			case delivery, ok := <-deliveries:
				if !ok {
					logrus.Warnf("Delivery channel for %s closed", queue)
					return
				}

				err := handle(delivery.Body)
				switch {
				case err == nil:
					delivery.Ack(false)
				case isUnmarshalError(err):
					// Poison payload, requeueing would loop forever.
					logrus.Errorf("Dropping malformed job from %s: %v", queue, err)
					delivery.Nack(false, false)
				default:
					logrus.Errorf("Job from %s failed, requeueing: %v", queue, err)
					delivery.Nack(false, true)
				}
			}
		}
	}()

	return nil
}

func isUnmarshalError(err error) bool {
	var target *unmarshalError
	return errors.As(err, &target)
}

// Close closes the RabbitMQ connection
func (s *RabbitMQService) Close() error {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			logrus.Warnf("Error closing channel: %v", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logrus.Warnf("Error closing connection: %v", err)
		}
	}
	return nil
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
