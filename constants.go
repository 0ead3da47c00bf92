package labctl

import (
	"time"

	"github.com/kjorgensen/labctl/internal/constants"
)

// Re-exported tunable defaults (§6.4/§6.5). All are configuration inputs,
// not hard-coded requirements — see Tunables and DefaultTunables.
const (
	HighQueueCapacity   = constants.HighQueueCapacity
	NormalQueueCapacity = constants.NormalQueueCapacity
	LowQueueCapacity    = constants.LowQueueCapacity

	DefaultTransactionMax = constants.DefaultTransactionMax

	ECCPathOCV   = constants.ECCPathOCV
	ECCPathPEIS  = constants.ECCPathPEIS
	ECCPathSPEIS = constants.ECCPathSPEIS
	ECCPathGEIS  = constants.ECCPathGEIS
	ECCPathSGEIS = constants.ECCPathSGEIS
)

var (
	DefaultCommandTimeout     time.Duration = constants.DefaultCommandTimeout
	DefaultTransactionTimeout time.Duration = constants.DefaultTransactionTimeout

	DefaultReconnectBase time.Duration = constants.DefaultReconnectBase
	DefaultReconnectCap  time.Duration = constants.DefaultReconnectCap

	SettleAfterConnect             time.Duration = constants.SettleAfterConnect
	SettleAfterTechniqueCompletion time.Duration = constants.SettleAfterTechniqueCompletion
	SettleAfterConfig              time.Duration = constants.SettleAfterConfig
	SettleGeneralRecovery          time.Duration = constants.SettleGeneralRecovery
)

const ReconnectExponentCap = constants.ReconnectExponentCap
