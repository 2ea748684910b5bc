// Package bbclient provides the main entry point for creating Bitbucket
// clients. It detects the platform variant from the configured base URL and
// wires the transport, retry policy, and resource clients.
package bbclient

import (
	"github.com/forgebridge/bitbucket-mcp/internal/client"
	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// New creates a new Bitbucket client. The platform variant (Cloud or Data
// Center) is detected from the base URL unless the config overrides it, and
// stays fixed for the client's lifetime.
func New(config *bitbucket.Config) (bitbucket.Client, error) {
	if config == nil {
		return nil, bitbucket.ErrConfigRequired
	}

	return client.New(config)
}
