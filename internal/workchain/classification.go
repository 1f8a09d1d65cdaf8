package workchain

import (
	"fmt"
	"strings"
)

// Classification is the discrete reason code attached to a failed attempt.
// It drives handler selection and is a closed set: anything a runner cannot
// express with the specific members is reported as ClassUnrecoverable.
type Classification string

const (
	ClassUnrecoverable          Classification = "unrecoverable"
	ClassElectronicNotConverged Classification = "electronic_convergence_not_reached"
	ClassIonicNotConverged      Classification = "ionic_convergence_not_reached"
	ClassSchedulerNodeFailure   Classification = "scheduler_node_failure"
	ClassSchedulerOutOfWalltime Classification = "scheduler_out_of_walltime"
)

func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ClassUnrecoverable):
		return ClassUnrecoverable, nil
	case string(ClassElectronicNotConverged):
		return ClassElectronicNotConverged, nil
	case string(ClassIonicNotConverged):
		return ClassIonicNotConverged, nil
	case string(ClassSchedulerNodeFailure):
		return ClassSchedulerNodeFailure, nil
	case string(ClassSchedulerOutOfWalltime):
		return ClassSchedulerOutOfWalltime, nil
	default:
		return "", fmt.Errorf("invalid classification: %q", s)
	}
}

func (c Classification) Valid() bool {
	_, err := ParseClassification(string(c))
	return err == nil
}

// Exit statuses a job attempt can terminate with. Statuses below the
// retryable threshold are program errors that no amount of resubmission will
// fix, with the exception of the scheduler band, which reports
// infrastructure-level failures that are retryable when restart state exists.
const (
	StatusSchedulerNodeFailure   = 105
	StatusSchedulerOutOfWalltime = 120

	StatusStdoutMissing  = 302
	StatusResultsMissing = 303

	StatusElectronicNotConverged = 410
	StatusIonicNotConverged      = 500

	retryableThreshold = 400
	schedulerBandLow   = 100
	schedulerBandHigh  = 199
)

// InUnrecoverableBand reports whether an exit status signals a non-retryable
// program error: below the retryable threshold and outside the scheduler band.
func InUnrecoverableBand(status int) bool {
	if status <= 0 {
		return false
	}
	if status >= schedulerBandLow && status <= schedulerBandHigh {
		return false
	}
	return status < retryableThreshold
}

// ClassifyExitStatus maps a job exit status onto the closed classification
// set. Unknown statuses escalate to unrecoverable rather than being silently
// treated as non-convergence.
func ClassifyExitStatus(status int) Classification {
	switch status {
	case StatusElectronicNotConverged:
		return ClassElectronicNotConverged
	case StatusIonicNotConverged:
		return ClassIonicNotConverged
	case StatusSchedulerNodeFailure:
		return ClassSchedulerNodeFailure
	case StatusSchedulerOutOfWalltime:
		return ClassSchedulerOutOfWalltime
	default:
		return ClassUnrecoverable
	}
}

// Terminal exit codes produced by the engine itself.
const (
	ExitOK                    = 0
	ExitUnrecoverableFailure  = 300
	ExitNoCheckpointToRestart = 310
	ExitMaxAttemptsExceeded   = 401
)

func ExitCodeMessage(code int) string {
	switch code {
	case ExitOK:
		return "the work chain completed successfully"
	case ExitUnrecoverableFailure:
		return "the calculation failed with an unrecoverable error"
	case ExitNoCheckpointToRestart:
		return "the job ran out of walltime and no checkpoint was retrieved to restart from"
	case ExitMaxAttemptsExceeded:
		return "the maximum number of attempts was exceeded"
	default:
		return fmt.Sprintf("the work chain failed with exit code %d", code)
	}
}
