package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Dispatcher configuration
// --------------------------------------------------------------------------

// DispatcherConfig holds the settings of a dispatcher or a router of dispatchers.
type DispatcherConfig struct {
	// Name identifies the dispatcher in logs and metrics
	Name string
	// Dispatchers is the number of dispatchers a router runs against one pool
	Dispatchers int
	// QueueSize bounds the mailbox of each dispatcher, 0 means unbounded
	QueueSize int
	// AcquireTimeout bounds a single pool acquisition, 0 waits until the pool delivers
	AcquireTimeout time.Duration
	// AcquireRetries is the number of additional attempts after an acquire timeout
	AcquireRetries int
	// RateLimit caps the operations per second of one dispatcher, 0 disables the limiter
	RateLimit float64
	// RateBurst is the burst size of the rate limiter
	RateBurst int
}

// DefaultDispatcherConfig returns the configuration used when nothing is set.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Name:           "default",
		Dispatchers:    1,
		QueueSize:      0,
		AcquireTimeout: 5 * time.Second,
		AcquireRetries: 0,
		RateLimit:      0,
		RateBurst:      1,
	}
}

// String returns a formatted string representation of the configuration
func (c *DispatcherConfig) String() string {
	var sb strings.Builder

	addSection(&sb, "Dispatcher")
	addField(&sb, "Name", c.Name)
	addField(&sb, "Dispatchers", strconv.Itoa(c.Dispatchers))
	if c.QueueSize > 0 {
		addField(&sb, "Queue Size", strconv.Itoa(c.QueueSize))
	} else {
		addField(&sb, "Queue Size", "unbounded")
	}
	if c.AcquireTimeout > 0 {
		addField(&sb, "Acquire Timeout", c.AcquireTimeout.String())
	} else {
		addField(&sb, "Acquire Timeout", "none")
	}
	addField(&sb, "Acquire Retries", strconv.Itoa(c.AcquireRetries))
	if c.RateLimit > 0 {
		addField(&sb, "Rate Limit", fmt.Sprintf("%.1f ops/sec (burst %d)", c.RateLimit, c.RateBurst))
	} else {
		addField(&sb, "Rate Limit", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Pool configuration
// --------------------------------------------------------------------------

// PoolConfig holds the settings of a SQL connection pool.
type PoolConfig struct {
	// Driver is the database/sql driver name (sqlite3, mysql)
	Driver string
	// DSN is the data source name passed to the driver
	DSN string
	// Capacity is the maximum number of checked out connections
	Capacity int
	// AcquireTimeout bounds the wait for a free connection, 0 waits forever
	AcquireTimeout time.Duration
}

// String returns a formatted string representation of the configuration
func (c *PoolConfig) String() string {
	var sb strings.Builder

	addSection(&sb, "Pool")
	addField(&sb, "Driver", c.Driver)
	addField(&sb, "DSN", c.DSN)
	addField(&sb, "Capacity", strconv.Itoa(c.Capacity))
	if c.AcquireTimeout > 0 {
		addField(&sb, "Acquire Timeout", c.AcquireTimeout.String())
	} else {
		addField(&sb, "Acquire Timeout", "none")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Logging configuration
// --------------------------------------------------------------------------

// LogConfig holds the logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is either console or json
	Format string
}

// String returns a formatted string representation of the configuration
func (c *LogConfig) String() string {
	var sb strings.Builder

	addSection(&sb, "Logging")
	addField(&sb, "Log Level", c.Level)
	addField(&sb, "Log Format", c.Format)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func addSection(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func addField(sb *strings.Builder, name, value string) {
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}
