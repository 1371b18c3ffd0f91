//go:build integration

package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"news_reader/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:        s.amqpURL,
		Exchange:   "exchange-" + name,
		RoutingKey: "key-" + name,
		QueueName:  "queue-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestPermission() {
	n := NewRabbitMQ(s.config("permission"), s.logger)
	defer n.Close()

	s.False(n.CheckPermission(s.ctx))
	s.True(n.RequestPermission(s.ctx))
	s.True(n.CheckPermission(s.ctx))
	s.True(n.RequestPermission(s.ctx))
}

func (s *RabbitMQIntegrationSuite) TestSchedule_WithoutPermission() {
	n := NewRabbitMQ(s.config("denied"), s.logger)
	defer n.Close()

	s.Empty(n.Schedule(s.ctx, domain.NewArticlesNotification(2)))
}

func (s *RabbitMQIntegrationSuite) TestSchedule_SingleArticle() {
	cfg := s.config("single")
	n := NewRabbitMQ(cfg, s.logger)
	defer n.Close()
	s.Require().True(n.RequestPermission(s.ctx))

	url := "https://example.com/go"
	id := n.Schedule(s.ctx, domain.NewArticleNotification(domain.Article{
		ID:    "123",
		Title: "Go 1.25 released",
		URL:   &url,
	}))
	s.NotEmpty(id)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
	s.Equal(id, msg.MessageId)

	var received Message
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(id, received.ID)
	s.Equal("New Article Available", received.Title)
	s.Equal("Go 1.25 released", received.Body)
	s.Equal("123", received.Data.ArticleID)
	s.Equal(url, received.Data.URL)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestCancelAll_PurgesQueue() {
	cfg := s.config("purge")
	n := NewRabbitMQ(cfg, s.logger)
	defer n.Close()
	s.Require().True(n.RequestPermission(s.ctx))

	s.NotEmpty(n.Schedule(s.ctx, domain.NewArticlesNotification(2)))
	s.NotEmpty(n.Schedule(s.ctx, domain.NewArticlesNotification(5)))

	n.CancelAll(s.ctx)

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(cfg.QueueName, true, false, false, false, nil)
	s.Require().NoError(err)
	s.Zero(q.Messages)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
