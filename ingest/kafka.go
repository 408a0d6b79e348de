package ingest

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
)

// messageReader abstracts kafka.Reader for testability
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTrigger refreshes the store once per message on a topic. Message
// contents are ignored; upstream jobs publish after they replace the data.
type KafkaTrigger struct {
	reader  messageReader
	refresh RefreshFunc
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewKafkaTrigger consumes cfg.Topic as part of cfg.GroupID
func NewKafkaTrigger(cfg am.KafkaConfig, refresh RefreshFunc, timeout time.Duration, log *zap.SugaredLogger) (*KafkaTrigger, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.Wrap(errors.ErrNotConfigured, "kafka.brokers is empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return newKafkaTriggerWith(reader, refresh, timeout, log), nil
}

func newKafkaTriggerWith(r messageReader, refresh RefreshFunc, timeout time.Duration, log *zap.SugaredLogger) *KafkaTrigger {
	if log == nil {
		log = logger.ComponentLogger("kafka")
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &KafkaTrigger{reader: r, refresh: refresh, timeout: timeout, logger: log}
}

// Run consumes until ctx is done. A failed refresh is logged and the message
// is still committed; the next message retries.
func (k *KafkaTrigger) Run(ctx context.Context) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "fetch refresh message")
		}

		k.handle(ctx, msg)

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			k.logger.Warnw("Commit failed", logger.FieldTopic, msg.Topic, logger.FieldError, err)
		}
	}
}

func (k *KafkaTrigger) handle(ctx context.Context, msg kafka.Message) {
	rctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	loaded, err := k.refresh(rctx)
	if err != nil {
		k.logger.Errorw("Refresh from topic failed",
			logger.FieldTopic, msg.Topic,
			"offset", msg.Offset,
			logger.FieldError, err)
		return
	}
	k.logger.Infow("Refreshed from topic",
		logger.FieldTopic, msg.Topic,
		"offset", msg.Offset,
		"loaded", loaded)
}

// Close closes the reader
func (k *KafkaTrigger) Close() error {
	return k.reader.Close()
}
