package tests

import (
	"context"

	"github.com/fipehub/billing-processor/config/kafka"
)

type MockMessageProducer struct {
	Key            []byte
	Value          []byte
	ExecutionCount int
	ReturnedValue  bool
}

func NewMockMessageProducer() *MockMessageProducer {
	return &MockMessageProducer{ReturnedValue: true}
}

func (mp *MockMessageProducer) Produce(ctx context.Context, msg *kafka.ProducerMessage) bool {
	mp.Key = msg.Key
	mp.Value = msg.Value
	mp.ExecutionCount++

	return mp.ReturnedValue
}

func (mp *MockMessageProducer) GetTopic() string {
	return "mocked_topic"
}
