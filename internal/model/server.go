package model

import "time"

// ServerInfo is the information the server exposes about itself.
type ServerInfo struct {
	Version string
	Edition string
	Plugins []PluginInfo
}

// PluginInfo describes a plugin installed in the server.
type PluginInfo struct {
	Name    string
	Version string
}

// ServerConfig is the connection configuration of an XL Deploy server.
type ServerConfig struct {
	URL                string
	Username           string
	Password           string
	ProxyURL           string
	SocketTimeout      time.Duration
	ConnectionPoolSize int
}
