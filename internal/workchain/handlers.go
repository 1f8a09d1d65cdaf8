package workchain

// Built-in handler priorities. The unrecoverable handler outranks everything
// so that a program error halts the chain even when a numerical handler would
// also recognize the attempt.
const (
	PriorityUnrecoverable      = 600
	PriorityIonicNotConverged  = 500
	PriorityElectronicRestart  = 410
	PrioritySchedulerNode      = 110
	PrioritySchedulerOutOfTime = 100
)

type reportFunc func(format string, args ...any)

// builtinRules returns the stock rule set mirroring the restart behavior of
// the PySCF base work chain: halt on program errors, restart numerical
// non-convergence from the retrieved checkpoint and geometry, and retry
// infrastructure failures when restart state survives.
func builtinRules(report reportFunc) []HandlerRule {
	return []HandlerRule{
		{
			Name:            "handle_unrecoverable_failure",
			Priority:        PriorityUnrecoverable,
			Classifications: []Classification{ClassUnrecoverable},
			Action: func(attempt AttemptRecord, out Outcome, ctx *Context) Decision {
				report("attempt %d failed with exit status %d: %s", attempt.Index, out.ExitStatus, out.Message)
				report("unrecoverable error, aborting")
				return Stop(ExitUnrecoverableFailure)
			},
		},
		{
			Name:            "handle_ionic_convergence_not_reached",
			Priority:        PriorityIonicNotConverged,
			Classifications: []Classification{ClassIonicNotConverged},
			Action: func(attempt AttemptRecord, out Outcome, ctx *Context) Decision {
				carryCheckpoint(out, ctx, report)
				switch {
				case out.Artifacts.Structure != nil:
					ctx.SetGeometry(out.Artifacts.Structure)
					report("optimizer ran out of steps: restarting from the last output geometry")
				case out.Artifacts.Trajectory.NumFrames() > 0:
					frame, _ := out.Artifacts.Trajectory.LastFrame()
					if prior := ctx.Geometry(); prior != nil {
						frame.PBC = prior.PBC
					}
					ctx.SetGeometry(frame)
					report("optimizer ran out of steps: restarting from the last trajectory frame")
				default:
					report("warning: optimizer did not converge and no output geometry was retrieved, restarting from the input geometry")
				}
				return Retry()
			},
		},
		{
			Name:            "handle_electronic_convergence_not_reached",
			Priority:        PriorityElectronicRestart,
			Classifications: []Classification{ClassElectronicNotConverged},
			Action: func(attempt AttemptRecord, out Outcome, ctx *Context) Decision {
				carryCheckpoint(out, ctx, report)
				report("electronic minimization did not reach self-consistency: restarting from the checkpoint")
				return Retry()
			},
		},
		{
			Name:            "handle_scheduler_node_failure",
			Priority:        PrioritySchedulerNode,
			Classifications: []Classification{ClassSchedulerNodeFailure},
			Action: func(attempt AttemptRecord, out Outcome, ctx *Context) Decision {
				// A prior checkpoint is kept as-is when this attempt produced
				// none; node failures retry unconditionally.
				if out.Artifacts.Checkpoint != nil {
					ctx.SetCheckpoint(out.Artifacts.Checkpoint)
				}
				report("compute node failure reported by the scheduler: resubmitting")
				return Retry()
			},
		},
		{
			Name:            "handle_out_of_walltime",
			Priority:        PrioritySchedulerOutOfTime,
			Classifications: []Classification{ClassSchedulerOutOfWalltime},
			Action: func(attempt AttemptRecord, out Outcome, ctx *Context) Decision {
				if out.Artifacts.Checkpoint == nil {
					// Restarting from scratch with the same time budget is
					// likely going to fail identically.
					report("job ran out of walltime and no checkpoint was retrieved, aborting")
					return Stop(ExitNoCheckpointToRestart)
				}
				ctx.SetCheckpoint(out.Artifacts.Checkpoint)
				report("job ran out of walltime: restarting from the checkpoint")
				return Retry()
			},
		},
	}
}

func carryCheckpoint(out Outcome, ctx *Context, report reportFunc) {
	if out.Artifacts.Checkpoint != nil {
		ctx.SetCheckpoint(out.Artifacts.Checkpoint)
		return
	}
	if ctx.Checkpoint() == nil {
		report("warning: no checkpoint was retrieved from the failed attempt")
	}
}
