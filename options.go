package npzheader

import "github.com/go-kit/log"

// Option configures a GetHeaders call.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sets the logger that receives debug events about format
// detection, skipped archive members and extracted scalars.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
