package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

const DefaultKafkaTopic = "price-alerts"

// Kafka envia os alertas para um tópico usando um produtor síncrono
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaConfig retorna a configuração do produtor
func NewKafkaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	return config
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar produtor Kafka: %w", err)
	}
	return NewKafkaWithProducer(producer, topic), nil
}

// NewKafkaWithProducer usa um produtor já criado (ex: mocks nos testes)
func NewKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(newEvent(msg))
	if err != nil {
		return fmt.Errorf("erro ao serializar alerta: %w", err)
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(msg.URL),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("erro ao enviar mensagem para o Kafka: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
