package determinism

import "time"

// Clock derives now() from the run's step counter: UNIX_EPOCH +
// epoch_offset + step * step_multiplier, in milliseconds.
type Clock struct {
	step           *StepCounter
	epochOffsetMs  uint64
	stepMultiplier uint64
}

func NewClock(step *StepCounter, epochOffsetMs, stepMultiplier uint64) *Clock {
	if stepMultiplier == 0 {
		stepMultiplier = 1
	}
	return &Clock{step: step, epochOffsetMs: epochOffsetMs, stepMultiplier: stepMultiplier}
}

// Now reads the current step without advancing it.
func (c *Clock) Now() time.Time {
	ms := c.epochOffsetMs + c.step.Current()*c.stepMultiplier
	return time.UnixMilli(0).Add(time.Duration(ms) * time.Millisecond)
}

func (c *Clock) StepMultiplier() uint64 { return c.stepMultiplier }
func (c *Clock) EpochOffsetMs() uint64  { return c.epochOffsetMs }
