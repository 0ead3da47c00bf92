// Package constants holds the tunable defaults for the scheduler and the
// BioLogic technique engine. Every value here is a configuration input, not
// a hard-coded requirement — callers override them via Tunables.
package constants

import "time"

// Priority queue capacities.
const (
	HighQueueCapacity   = 50
	NormalQueueCapacity = 20
	LowQueueCapacity    = 10
)

// Command and transaction timing.
const (
	DefaultCommandTimeout     = 30 * time.Second
	DefaultTransactionMax     = 20
	DefaultTransactionTimeout = 60 * time.Second
)

// Reconnect backoff.
const (
	DefaultReconnectBase = 1 * time.Second
	DefaultReconnectCap  = 30 * time.Second
	ReconnectExponentCap = 5 // largest backoff exponent: attempts after the sixth no longer increase the delay
)

// Worker polling ticks.
const (
	EmptyQueuePollInterval   = 10 * time.Millisecond
	DisconnectedPollInterval = 100 * time.Millisecond
)

// BioLogic device settle delays (spec.md §6.5).
const (
	SettleAfterConnect             = 500 * time.Millisecond
	SettleAfterTechniqueCompletion = 200 * time.Millisecond
	SettleAfterConfig              = 100 * time.Millisecond
	SettleGeneralRecovery          = 50 * time.Millisecond
)

// BioLogic technique file paths (spec.md §6.3), relative to the vendor
// library root.
const (
	ECCPathOCV   = "lib/ocv.ecc"
	ECCPathPEIS  = "lib/peis.ecc"
	ECCPathSPEIS = "lib/seisp.ecc"
	ECCPathGEIS  = "lib/geis.ecc"
	ECCPathSGEIS = "lib/seisg.ecc"
)

// StopChannelSettle is the wait after stopping a channel before loading a
// fresh technique (spec.md §4.7, Start step 5).
const StopChannelSettle = 200 * time.Millisecond
