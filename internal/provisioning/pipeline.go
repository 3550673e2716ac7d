package provisioning

import (
	"fmt"
	"time"
)

// Pipeline runs phases in order and stops at the first failing phase.
type Pipeline struct {
	Phases []Phase
}

// NewPipeline creates a pipeline from phases.
func NewPipeline(phases ...Phase) *Pipeline {
	return &Pipeline{Phases: phases}
}

// Run executes all phases sequentially.
func (p *Pipeline) Run(ctx *Context) error {
	start := time.Now()
	ctx.Observer.Printf("Starting run with %d phases...", len(p.Phases))

	for _, phase := range p.Phases {
		phaseStart := time.Now()
		LogStageStart(ctx.Observer, phase.Name())

		if err := phase.Provision(ctx); err != nil {
			LogStageFailed(ctx.Observer, phase.Name(), err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		LogStageComplete(ctx.Observer, phase.Name(), time.Since(phaseStart))
	}

	ctx.Observer.Printf("Run completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
