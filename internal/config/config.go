// Package config loads settings for the binaries: an optional .env file,
// then environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Relay configures cmd/relay
type Relay struct {
	Addr          string
	DBPath        string
	LogLevel      string
	MaxConnsPerIP int
	PublicURL     string
}

// Peer configures cmd/tankpeer
type Peer struct {
	RelayURL string
	Room     string
	Nickname string
	DBPath   string
	LogLevel string
	Offline  bool
}

// LoadEnv reads .env from the working directory when present
func LoadEnv() error {
	err := godotenv.Load()
	if err == nil {
		log.Debug("loaded .env")
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// LoadRelay builds the relay config from env defaults and args
func LoadRelay(args []string) (Relay, error) {
	c := Relay{
		Addr:          env("TANK_RELAY_ADDR", ":8080"),
		DBPath:        env("TANK_RELAY_DB", "relay.db"),
		LogLevel:      env("TANK_LOG_LEVEL", "info"),
		MaxConnsPerIP: envInt("TANK_MAX_CONNS_PER_IP", 5),
		PublicURL:     env("TANK_PUBLIC_URL", "http://localhost:8080"),
	}
	fset := flag.NewFlagSet("relay", flag.ContinueOnError)
	fset.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fset.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path")
	fset.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fset.IntVar(&c.MaxConnsPerIP, "max-conns", c.MaxConnsPerIP, "websocket connections allowed per IP")
	fset.StringVar(&c.PublicURL, "public-url", c.PublicURL, "base URL encoded into room invites")
	if err := fset.Parse(args); err != nil {
		return Relay{}, err
	}
	return c, nil
}

// LoadPeer builds the peer config from env defaults and args
func LoadPeer(args []string) (Peer, error) {
	c := Peer{
		RelayURL: env("TANK_RELAY_URL", "http://localhost:8080"),
		Room:     env("TANK_ROOM", ""),
		Nickname: env("TANK_NICKNAME", ""),
		DBPath:   env("TANK_PEER_DB", "peer.db"),
		LogLevel: env("TANK_LOG_LEVEL", "info"),
	}
	fset := flag.NewFlagSet("tankpeer", flag.ContinueOnError)
	fset.StringVar(&c.RelayURL, "relay", c.RelayURL, "relay base URL")
	fset.StringVar(&c.Room, "room", c.Room, "room to join or create (empty joins a random room)")
	fset.StringVar(&c.Nickname, "nick", c.Nickname, "nickname (saved for next time)")
	fset.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path")
	fset.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fset.BoolVar(&c.Offline, "offline", false, "practice without a relay")
	if err := fset.Parse(args); err != nil {
		return Peer{}, err
	}
	c.RelayURL = strings.TrimRight(c.RelayURL, "/")
	return c, nil
}

// SetupLogging applies a level name to the standard logrus logger
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("ignoring non-numeric value %q", v)
		return def
	}
	return n
}
