package extract

// Config holds the extractor configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// Objcopy is a shell command line that converts $OBJ into a raw binary at $OUT.
	// Empty disables the external tool and uses in-process ELF extraction only.
	Objcopy string

	// StrictIndirect turns direct references to external symbols into an error
	StrictIndirect bool
}

// Option is a functional option for configuring the Extractor.
type Option func(*Config)

// WithLogger sets a logger for extraction diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObjcopy sets the external objcopy command line.
//
// Example:
//
//	ex := extract.New(extract.Xtensa,
//	    extract.WithObjcopy(`xtensa-esp32s3-elf-objcopy -O binary "$OBJ" "$OUT"`),
//	)
func WithObjcopy(command string) Option {
	return func(c *Config) {
		c.Objcopy = command
	}
}

// WithStrictIndirect rejects objects that reference undefined symbols.
func WithStrictIndirect(strict bool) Option {
	return func(c *Config) {
		c.StrictIndirect = strict
	}
}

// Logger is an optional logging interface, compatible with the other packages
// of this module.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
