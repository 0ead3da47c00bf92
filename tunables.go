package labctl

import (
	"time"

	"github.com/kjorgensen/labctl/internal/constants"
)

// Tunables holds every scheduler constant named in §6.4 as configuration
// inputs rather than hard-coded requirements, following the teacher's
// DefaultParams/DefaultDeviceParams struct-with-constructor pattern.
type Tunables struct {
	HighQueueCapacity   int
	NormalQueueCapacity int
	LowQueueCapacity    int

	CommandTimeout time.Duration

	TransactionMax         int
	TransactionTimeout     time.Duration
	TransactionReadyBuffer int

	ReconnectBase       time.Duration
	ReconnectCap        time.Duration
	ReconnectExponentCap int

	EmptyQueuePoll   time.Duration
	DisconnectedPoll time.Duration
}

// DefaultTunables returns the §6.4 defaults.
func DefaultTunables() Tunables {
	return Tunables{
		HighQueueCapacity:   constants.HighQueueCapacity,
		NormalQueueCapacity: constants.NormalQueueCapacity,
		LowQueueCapacity:    constants.LowQueueCapacity,

		CommandTimeout: constants.DefaultCommandTimeout,

		TransactionMax:         constants.DefaultTransactionMax,
		TransactionTimeout:     constants.DefaultTransactionTimeout,
		TransactionReadyBuffer: 4,

		ReconnectBase:        constants.DefaultReconnectBase,
		ReconnectCap:         constants.DefaultReconnectCap,
		ReconnectExponentCap: constants.ReconnectExponentCap,

		EmptyQueuePoll:   constants.EmptyQueuePollInterval,
		DisconnectedPoll: constants.DisconnectedPollInterval,
	}
}
