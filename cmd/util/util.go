package util

import (
	"fmt"
	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DCRUD_LOG_LEVEL)
	EnvPrefix = "dcrud"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read DCRUD_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetupLogFlags adds the logging flags to a command
func SetupLogFlags(cmd *cobra.Command) {
	key := "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The level at which logs will be output (debug, info, warn, error)"))

	key = "log-format"
	cmd.PersistentFlags().String(key, "console", WrapString("The format of the log output (console, json)"))
}

// SetupDispatcherFlags adds the dispatcher flags to a command
func SetupDispatcherFlags(cmd *cobra.Command) {
	defaults := common.DefaultDispatcherConfig()

	key := "dispatchers"
	cmd.PersistentFlags().Int(key, defaults.Dispatchers, WrapString("Number of dispatchers sharing the connection pool. Commands of one key are always handled by the same dispatcher"))

	key = "queue-size"
	cmd.PersistentFlags().Int(key, defaults.QueueSize, WrapString("Capacity of the mailbox of each dispatcher, 0 means unbounded. A full mailbox suspends the caller"))

	key = "acquire-timeout"
	cmd.PersistentFlags().Duration(key, defaults.AcquireTimeout, WrapString("How long a dispatcher waits for a pooled connection before the request fails with PoolExhaustedTimeout (0 waits forever)"))

	key = "acquire-retries"
	cmd.PersistentFlags().Int(key, defaults.AcquireRetries, WrapString("How many times an acquire timeout is retried with exponential backoff"))

	key = "rate-limit"
	cmd.PersistentFlags().Float64(key, defaults.RateLimit, WrapString("Maximum operations per second of each dispatcher, 0 disables the limiter"))

	key = "rate-burst"
	cmd.PersistentFlags().Int(key, defaults.RateBurst, WrapString("Burst size of the rate limiter"))
}

// SetupPoolFlags adds the connection pool flags to a command
func SetupPoolFlags(cmd *cobra.Command) {
	key := "db-driver"
	cmd.PersistentFlags().String(key, "sqlite3", WrapString("The database/sql driver (sqlite3, mysql)"))

	key = "db-dsn"
	cmd.PersistentFlags().String(key, "file:dcrud.db?_busy_timeout=5000&_journal_mode=WAL", WrapString("The data source name of the database (e.g. user:pass@tcp(localhost:3306)/dcrud for mysql)"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, 4, WrapString("Maximum number of leased database connections"))

	key = "pool-acquire-timeout"
	cmd.PersistentFlags().Duration(key, 0, WrapString("How long the pool itself waits for a free connection (0 leaves the bound to the dispatcher)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetLogConfig reads the logging configuration from viper
func GetLogConfig() common.LogConfig {
	return common.LogConfig{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
	}
}

// GetDispatcherConfig reads the dispatcher configuration from viper
func GetDispatcherConfig(name string) (common.DispatcherConfig, error) {
	conf := common.DispatcherConfig{
		Name:           name,
		Dispatchers:    viper.GetInt("dispatchers"),
		QueueSize:      viper.GetInt("queue-size"),
		AcquireTimeout: viper.GetDuration("acquire-timeout"),
		AcquireRetries: viper.GetInt("acquire-retries"),
		RateLimit:      viper.GetFloat64("rate-limit"),
		RateBurst:      viper.GetInt("rate-burst"),
	}

	switch {
	case conf.Dispatchers < 1:
		return conf, fmt.Errorf("invalid number of dispatchers %d (must be at least 1)", conf.Dispatchers)
	case conf.QueueSize < 0:
		return conf, fmt.Errorf("invalid queue size %d (must not be negative)", conf.QueueSize)
	case conf.AcquireTimeout < 0:
		return conf, fmt.Errorf("invalid acquire timeout %s (must not be negative)", conf.AcquireTimeout)
	case conf.AcquireRetries < 0:
		return conf, fmt.Errorf("invalid acquire retries %d (must not be negative)", conf.AcquireRetries)
	case conf.RateLimit < 0:
		return conf, fmt.Errorf("invalid rate limit %.1f (must not be negative)", conf.RateLimit)
	}
	if conf.RateBurst < 1 {
		conf.RateBurst = 1
	}
	return conf, nil
}

// GetPoolConfig reads the connection pool configuration from viper
func GetPoolConfig() (common.PoolConfig, error) {
	conf := common.PoolConfig{
		Driver:         viper.GetString("db-driver"),
		DSN:            viper.GetString("db-dsn"),
		Capacity:       viper.GetInt("pool-size"),
		AcquireTimeout: viper.GetDuration("pool-acquire-timeout"),
	}
	if conf.Capacity < 1 {
		return conf, fmt.Errorf("invalid pool size %d (must be at least 1)", conf.Capacity)
	}
	if conf.AcquireTimeout < 0 {
		return conf, fmt.Errorf("invalid pool acquire timeout %s (must not be negative)", conf.AcquireTimeout)
	}
	return conf, nil
}
