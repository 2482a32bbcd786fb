package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

const clientID = "stayquote"

func baseConfig(cfg *sarama.Config) *sarama.Config {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_5_0_0
	return cfg
}

// producerConfig enables idempotent writes; sarama requires a single in-flight
// request per connection for that.
func producerConfig(cfg *sarama.Config) *sarama.Config {
	cfg = baseConfig(cfg)
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func consumerConfig(cfg *sarama.Config) *sarama.Config {
	cfg = baseConfig(cfg)
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	return cfg
}
