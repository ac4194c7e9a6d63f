package observers

import logutil "github.com/anggasct/trafficflow/pkg/logging"

// NewDefaultLoggingObserver creates a logging observer on a production logger at DEFAULT verbosity
func NewDefaultLoggingObserver() (*LoggingObserver, error) {
	logger, err := logutil.NewLogger(logutil.Options{Verbosity: logutil.DEFAULT})
	if err != nil {
		return nil, err
	}
	return NewLoggingObserver(logger, "intersection"), nil
}
