package bus

import (
	"fmt"
	"strings"

	"github.com/convomem/retrieval-engine/internal/config"
	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

// NewBus creates a new Bus instance based on the configuration.
func NewBus(cfg config.BusConfig) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeBadInput, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "retrieval-engine"
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "retrieval-engine-bus",
		})

	case "nats":
		return nil, errors.New(errors.CodeInternal, "NATS bus not implemented yet")

	case "redis":
		return nil, errors.New(errors.CodeInternal, "Redis Streams bus not implemented yet")

	default:
		return nil, errors.New(errors.CodeBadInput, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}
}
