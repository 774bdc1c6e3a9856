// Package kafka publishes playback updates to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/config"
	"github.com/couchcryptid/flood-replay-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces playback updates to the frame topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured frame topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFrameTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes updates in a single WriteMessages call. Updates are
// keyed by session id so one session's frames stay ordered on a partition.
func (w *Writer) LoadBatch(ctx context.Context, updates []domain.PlaybackUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(updates))
	for i := range updates {
		msg, err := serializeToMessage(updates[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d playback updates: %w", len(msgs), err)
	}
	w.logger.Debug("playback updates written", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PlaybackUpdate into a Kafka message.
func serializeToMessage(update domain.PlaybackUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize playback update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(update.SessionID),
		Value: data,
		Time:  update.At,
		Headers: []kafkago.Header{
			{Key: "reason", Value: []byte(update.Reason)},
			{Key: "frame_index", Value: []byte(strconv.Itoa(update.State.CurrentFrameIndex))},
			{Key: "published_at", Value: []byte(update.At.Format(time.RFC3339))},
		},
	}, nil
}
