package events

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"go.uber.org/zap"

	"portrait-pipeline/internal/model"
)

// Handler processes one decoded notification.
type Handler interface {
	Handle(ctx context.Context, ev model.ObjectCreated) error
}

// ConsumerConfig tunes the SQS poll loop.
type ConsumerConfig struct {
	QueueURL    string
	Workers     int
	WaitSeconds int64
	// ShutdownGrace bounds how long in-flight messages may run after Run's
	// context is cancelled. Defaults to 55s, above the inference timeout.
	ShutdownGrace time.Duration
}

// Consumer long-polls an SQS queue subscribed to the bucket's
// notifications. A message is deleted only when every record in it was
// handled; otherwise it stays for the queue's redrive policy.
type Consumer struct {
	client  sqsiface.SQSAPI
	cfg     ConsumerConfig
	handler Handler
	log     *zap.Logger
}

func NewConsumer(client sqsiface.SQSAPI, cfg ConsumerConfig, handler Handler, log *zap.Logger) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WaitSeconds <= 0 || cfg.WaitSeconds > 20 {
		cfg.WaitSeconds = 20
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 55 * time.Second
	}
	return &Consumer{client: client, cfg: cfg, handler: handler, log: log}
}

// Run polls until ctx is cancelled. Messages already handed to a worker
// are finished under a context that outlives ctx by at most
// ShutdownGrace; anything cut off there stays on the queue for redelivery.
// Messages received but not yet started are left for redelivery too.
func (c *Consumer) Run(ctx context.Context) error {
	msgs := make(chan *sqs.Message, c.cfg.Workers)
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup
	wg.Add(c.cfg.Workers)
	for i := 0; i < c.cfg.Workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for m := range msgs {
				if ctx.Err() != nil {
					// Not started before shutdown.
					continue
				}
				if err := c.process(workCtx, m); err != nil {
					c.log.Error("message left on queue",
						zap.Int("worker", workerID),
						zap.String("messageId", aws.StringValue(m.MessageId)),
						zap.Error(err))
				}
			}
		}(i)
	}
	defer func() {
		close(msgs)
		drained := make(chan struct{})
		go func() {
			wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(c.cfg.ShutdownGrace):
			c.log.Warn("shutdown grace elapsed, aborting in-flight messages",
				zap.Duration("grace", c.cfg.ShutdownGrace))
			cancelWork()
			<-drained
		}
	}()

	c.log.Info("consuming", zap.String("queue", c.cfg.QueueURL), zap.Int("workers", c.cfg.Workers))
	for {
		if ctx.Err() != nil {
			return nil
		}

		out, err := c.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.cfg.QueueURL),
			MaxNumberOfMessages: aws.Int64(10),
			WaitTimeSeconds:     aws.Int64(c.cfg.WaitSeconds),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, m := range out.Messages {
			select {
			case msgs <- m:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, m *sqs.Message) error {
	evs, err := Decode([]byte(aws.StringValue(m.Body)))
	if err != nil {
		return err
	}

	for _, ev := range evs {
		if err := c.handler.Handle(ctx, ev); err != nil {
			c.log.Error("stage failed",
				zap.String("bucket", ev.Bucket),
				zap.String("key", ev.Key),
				zap.Error(err))
			return err
		}
	}

	_, err = c.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: m.ReceiptHandle,
	})
	return err
}
