package log

// Options contains configuration settings for the logger.
// The struct tags let go-flags embed it as an option group.
type Options struct {
	// Name is added as the logger name on every entry.
	Name string `long:"log-name" description:"Logger name" json:"name,omitempty"`

	// Level is the minimum level: debug, info, warn or error.
	Level string `long:"log-level" default:"info" description:"Minimum log level (debug, info, warn, error)" json:"level,omitempty"`

	// Format is json or console.
	Format string `long:"log-format" default:"console" description:"Log format (json or console)" json:"format,omitempty"`

	// EnableColor colorizes levels in console format.
	EnableColor bool `long:"log-color" description:"Colorize console log levels" json:"enable-color,omitempty"`

	// DisableCaller drops the file:line annotation.
	DisableCaller bool `long:"log-disable-caller" description:"Omit caller file and line" json:"disable-caller,omitempty"`

	// OutputPaths lists log sinks. Defaults to stderr.
	OutputPaths []string `long:"log-output" description:"Log output path (repeatable, e.g. stderr or a file)" json:"output-paths,omitempty"`
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}
