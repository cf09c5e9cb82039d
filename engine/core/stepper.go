package core

// FixedStep turns variable frame times into a whole number of fixed updates.
type FixedStep struct {
	// Period of one update in seconds.
	Period float64
	// MaxSteps bounds the updates run for one frame; leftover time is dropped
	// so a slow frame cannot snowball. 0 means no bound.
	MaxSteps    int
	accumulator float64
}

func NewFixedStep(period float64, maxSteps int) *FixedStep {
	return &FixedStep{Period: period, MaxSteps: maxSteps}
}

// Advance adds delta seconds and returns how many updates are due.
func (fs *FixedStep) Advance(delta float64) int {
	if fs.Period <= 0 || delta <= 0 {
		return 0
	}
	fs.accumulator += delta
	steps := 0
	for fs.accumulator >= fs.Period {
		fs.accumulator -= fs.Period
		steps++
		if fs.MaxSteps > 0 && steps == fs.MaxSteps {
			if fs.accumulator >= fs.Period {
				LogDebug("dropping %.3fs of fixed update time", fs.accumulator)
				fs.accumulator = 0
			}
			break
		}
	}
	return steps
}

// Alpha is how far, in [0,1), the accumulator is into the next update.
func (fs *FixedStep) Alpha() float64 {
	if fs.Period <= 0 {
		return 0
	}
	return fs.accumulator / fs.Period
}

func (fs *FixedStep) Reset() {
	fs.accumulator = 0
}
