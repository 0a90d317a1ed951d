package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"vibtrix/config"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher emits competition lifecycle events onto a per-competition
// topic. The push notification subsystem consumes these; delivery is not
// this service's concern.
type KafkaPublisher struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaPublisher() *KafkaPublisher {
	return &KafkaPublisher{
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *KafkaPublisher) writerFor(competitionId string) (*kafka.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if writer, ok := p.writers[competitionId]; ok {
		return writer, nil
	}
	writer, err := config.GetWriter(competitionId)
	if err != nil {
		return nil, err
	}
	p.writers[competitionId] = writer
	return writer, nil
}

func (p *KafkaPublisher) Publish(competitionId string, event any) error {
	writer, err := p.writerFor(competitionId)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return writer.WriteMessages(ctx, kafka.Message{
		Time:  time.Now(),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, writer := range p.writers {
		_ = writer.Close()
	}
	p.writers = make(map[string]*kafka.Writer)
}
