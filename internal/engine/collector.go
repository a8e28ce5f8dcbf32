package engine

import "go.uber.org/multierr"

// collector accumulates errors within a phase. Nothing in a phase fails on
// the first offense; the phase boundary turns a non-empty collector into a
// single *PhaseError.
type collector struct {
	stage string
	phase string
	err   error
}

func newCollector(stage, phase string) *collector {
	return &collector{stage: stage, phase: phase}
}

func (c *collector) add(err error) {
	c.err = multierr.Append(c.err, err)
}

// result returns nil or a *PhaseError holding everything collected.
func (c *collector) result() error {
	if c.err == nil {
		return nil
	}
	return &PhaseError{Stage: c.stage, Phase: c.phase, errs: multierr.Errors(c.err)}
}
