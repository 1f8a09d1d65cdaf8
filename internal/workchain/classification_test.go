package workchain

import "testing"

func TestInUnrecoverableBand(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{0, false},
		{-1, false},
		{1, true},
		{StatusResultsMissing, true},
		{StatusStdoutMissing, true},
		{399, true},
		{retryableThreshold, false},
		{StatusElectronicNotConverged, false},
		{StatusIonicNotConverged, false},
		// Scheduler band is retryable infrastructure, not a program error.
		{StatusSchedulerNodeFailure, false},
		{StatusSchedulerOutOfWalltime, false},
		{schedulerBandLow, false},
		{schedulerBandHigh, false},
	}
	for _, tc := range cases {
		if got := InUnrecoverableBand(tc.status); got != tc.want {
			t.Errorf("InUnrecoverableBand(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestClassifyExitStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Classification
	}{
		{StatusElectronicNotConverged, ClassElectronicNotConverged},
		{StatusIonicNotConverged, ClassIonicNotConverged},
		{StatusSchedulerNodeFailure, ClassSchedulerNodeFailure},
		{StatusSchedulerOutOfWalltime, ClassSchedulerOutOfWalltime},
		// Anything else, missing-output statuses included, escalates.
		{StatusStdoutMissing, ClassUnrecoverable},
		{StatusResultsMissing, ClassUnrecoverable},
		{1, ClassUnrecoverable},
		{9999, ClassUnrecoverable},
	}
	for _, tc := range cases {
		if got := ClassifyExitStatus(tc.status); got != tc.want {
			t.Errorf("ClassifyExitStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestParseClassification(t *testing.T) {
	for _, valid := range []Classification{
		ClassUnrecoverable,
		ClassElectronicNotConverged,
		ClassIonicNotConverged,
		ClassSchedulerNodeFailure,
		ClassSchedulerOutOfWalltime,
	} {
		got, err := ParseClassification(string(valid))
		if err != nil || got != valid {
			t.Errorf("ParseClassification(%q) = %q, %v", valid, got, err)
		}
	}
	if _, err := ParseClassification("bogus"); err == nil {
		t.Errorf("expected error for unknown classification")
	}
}
