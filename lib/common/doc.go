// Package common contains the configuration and logging shared by the tangledb
// command line tool and applications embedding a tangle.
//
// Config describes the ordered provider chain (memory and/or lsm), the storage
// locations (data directory, write-ahead log directory), the lsm cache budget,
// durability and compression, and the log level. BuildProviders turns a Config
// into unopened providers ready to be added to a tangle.
//
// The logger implements dragonboat's logger.ILogger and is installed as the
// global logger factory by InitLoggers, so every package obtains its named
// logger with logger.GetLogger.
package common
