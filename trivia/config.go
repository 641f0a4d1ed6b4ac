package main

import (
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	defaultServerIP   = "127.0.0.1"
	defaultServerPort = 8175

	configKeyIP   = "server_ip = "
	configKeyPort = "server_port = "
)

type Config struct {
	ServerIP   string
	ServerPort int
}

// LoadConfig reads the legacy config.txt ("server_ip = ...", "server_port =
// ..." lines) and then applies TRIVIA_SERVER_IP / TRIVIA_SERVER_PORT
// environment overrides. A missing or malformed file falls back to the
// loopback defaults.
func LoadConfig(path string) Config {
	cfg := Config{ServerIP: defaultServerIP, ServerPort: defaultServerPort}
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, configKeyIP):
				if ip := strings.TrimSpace(strings.TrimPrefix(line, configKeyIP)); ip != "" {
					cfg.ServerIP = ip
				}
			case strings.HasPrefix(line, configKeyPort):
				if port, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, configKeyPort))); err == nil {
					cfg.ServerPort = port
				}
			}
		}
	}
	if ip := os.Getenv("TRIVIA_SERVER_IP"); ip != "" {
		cfg.ServerIP = ip
	}
	if p := os.Getenv("TRIVIA_SERVER_PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.ServerPort = port
		}
	}
	return cfg
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.ServerIP, strconv.Itoa(c.ServerPort))
}
