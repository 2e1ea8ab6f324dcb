package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// NetAddress holds structured network address data for host and port.
// It implements the pflag.Value interface.
type NetAddress struct {
	Host string
	Port int

	target *string
}

// RegisterFlags binds all configuration flags to fs and returns the config
// they populate once fs is parsed. Unset flags leave zero values behind,
// so the result can be merged over env and defaults.
//
// Flags:
//
//	-a, --address       trigger API address in format [host]:[port]
//	-d, --dsn           SQLite DSN (":memory:" for in-process stores)
//	-r, --remote        remote store base URL ("memory://" for in-process)
//	    --token         remote store bearer token
//	    --device-id     device identifier
//	    --request-timeout  remote request timeout (e.g. "30s")
//	-i, --interval      sync interval (e.g. "5m")
//	-z, --zones         zones to pull
//	    --deny          data types excluded from sync
//	    --push-concurrency  record types pushed in parallel
//	    --log-file      write logs to this file
//	-c, --config        JSON config file path
func RegisterFlags(fs *pflag.FlagSet) *StructuredConfig {
	cfg := &StructuredConfig{}

	fs.VarP(&NetAddress{target: &cfg.Server.HTTPAddress}, "address", "a", "Trigger API address host:port")
	fs.StringVarP(&cfg.Storage.DB.DSN, "dsn", "d", "", "SQLite DSN")
	fs.StringVarP(&cfg.Remote.Address, "remote", "r", "", "Remote store base URL")
	fs.StringVar(&cfg.Remote.AuthToken, "token", "", "Remote store bearer token")
	fs.DurationVar(&cfg.Remote.RequestTimeout, "request-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	fs.StringVar(&cfg.App.DeviceID, "device-id", "", "Device identifier")
	fs.StringVar(&cfg.App.LogFile, "log-file", "", "Log file path")
	fs.DurationVarP(&cfg.Sync.Interval, "interval", "i", 0, "Sync interval (e.g., 5m)")
	fs.StringSliceVarP(&cfg.Sync.Zones, "zones", "z", nil, "Zones to pull")
	fs.StringSliceVar(&cfg.Sync.DeniedDataTypes, "deny", nil, "Data types excluded from sync")
	fs.IntVar(&cfg.Sync.PushConcurrency, "push-concurrency", 0, "Record types pushed in parallel")
	fs.StringVarP(&cfg.JSONFilePath, "config", "c", "", "JSON config file path")

	return cfg
}

// String returns a canonical host:port string for a NetAddress.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Type implements pflag.Value.
func (a *NetAddress) Type() string { return "host:port" }

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1..65535")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	if a.target != nil {
		*a.target = a.String()
	}
	return nil
}
