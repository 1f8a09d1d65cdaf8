package workchain

import "fmt"

// ConfigurationError reports an invalid engine or handler configuration. It
// is returned synchronously from Register and New; expected failure
// classifications never surface as errors from Run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "workchain configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
