package hub

import (
	"time"

	"go.uber.org/zap/zapcore"
)

func DefaultConfig() Config {
	return Config{
		PullBatchSize:  10,
		SweepInterval:  time.Minute,
		ExpiryInterval: 30 * time.Second,
		CallbackTTL:    5 * time.Minute,
		ClaimTTL:       10 * time.Minute,
		FanOut:         1,
		UnitReward:     100,
	}
}

//nolint:lll
type Config struct {
	PullBatchSize  int           `long:"pull-batch-size" description:"The maximum number of places dispatched per work request"`
	SweepInterval  time.Duration `long:"sweep-interval"  description:"The interval between periodic dispatch sweeps over registered workers"`
	ExpiryInterval time.Duration `long:"expiry-interval" description:"The interval between sweeps expiring stale dispatches and claims"`
	CallbackTTL    time.Duration `long:"callback-ttl"    description:"How long the hub waits for a result before expiring a dispatched work order"`
	ClaimTTL       time.Duration `long:"claim-ttl"       description:"How long a claim on a place lasts before it is released for retry"`
	FanOut         int           `long:"fan-out"         description:"The number of workers each swept place is dispatched to; values above 1 trade redundant work for dropout tolerance (first result wins)"`
	UnitReward     uint64        `long:"unit-reward"     description:"The payout accrued per accepted measurement"`
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("pull-batch-size", c.PullBatchSize)
	enc.AddDuration("sweep-interval", c.SweepInterval)
	enc.AddDuration("callback-ttl", c.CallbackTTL)
	enc.AddDuration("claim-ttl", c.ClaimTTL)
	enc.AddInt("fan-out", c.FanOut)
	enc.AddUint64("unit-reward", c.UnitReward)

	return nil
}
