// Package common contains the configuration structs and the logging setup
// shared by all packages of dCRUD.
//
// Logging:
//
//	All packages log through named dragonboat loggers (logger.GetLogger(name)).
//	InitLoggers replaces the default backend with a zerolog based factory and
//	applies the configured level to every logger of this module:
//
//	if err := common.InitLoggers(common.LogConfig{Level: "debug", Format: "json"}); err != nil {
//		return err
//	}
//
// Configuration:
//
//   - DispatcherConfig: mailbox size, acquire timeout and retries, rate limit
//     and the number of dispatchers a router runs
//   - PoolConfig: driver, DSN, capacity and acquire timeout of a SQL pool
//   - LogConfig: level and output format
//
// Every config struct renders itself with String() for startup output. The
// structs carry no loading logic, the cmd package fills them from flags,
// environment variables and .env files.
package common
