package commands

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/forgebridge/bitbucket-mcp/internal/logging"
	"github.com/forgebridge/bitbucket-mcp/pkg/bbclient"
	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"

	Masked = "***"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLNotConfigured = errors.New("no base URL configured: set --base-url or BITBUCKET_MCP_BASE_URL")
	ErrTokenNotConfigured   = errors.New("no token configured: set --token or BITBUCKET_MCP_TOKEN")
	ErrUnknownVariant       = errors.New("unknown variant: expected cloud or datacenter")
)

// effectiveConfig assembles the client configuration from viper, which has
// already merged flags, environment, and the config file.
func effectiveConfig() (*bitbucket.Config, error) {
	baseURL := viper.GetString("base-url")
	if baseURL == "" {
		return nil, ErrBaseURLNotConfigured
	}

	config := &bitbucket.Config{
		BaseURL:        baseURL,
		AuthToken:      viper.GetString("token"),
		RetryMax:       viper.GetInt("retry-max"),
		RequestTimeout: viper.GetDuration("timeout"),
		Debug:          viper.GetBool("debug"),
	}

	switch variant := viper.GetString("variant"); variant {
	case "":
		config.Variant = bitbucket.DetectVariant(baseURL)
	case string(bitbucket.VariantCloud):
		config.Variant = bitbucket.VariantCloud
	case string(bitbucket.VariantDataCenter):
		config.Variant = bitbucket.VariantDataCenter
	default:
		return nil, ErrUnknownVariant
	}

	return config, nil
}

// createClient builds a Bitbucket client and its logger from the effective
// configuration. The caller owns the returned logger's Sync.
func createClient() (bitbucket.Client, *logging.Logger, error) {
	config, err := effectiveConfig()
	if err != nil {
		return nil, nil, err
	}

	if config.AuthToken == "" {
		return nil, nil, ErrTokenNotConfigured
	}

	logger, err := logging.New(config.Debug)
	if err != nil {
		return nil, nil, err
	}

	config.Logger = logger

	client, err := bbclient.New(config)
	if err != nil {
		return nil, nil, err
	}

	return client, logger, nil
}

// configView is the redacted rendering of the effective configuration.
type configView struct {
	BaseURL  string        `json:"base_url" yaml:"base_url"`
	Variant  string        `json:"variant" yaml:"variant"`
	Token    string        `json:"token" yaml:"token"`
	RetryMax int           `json:"retry_max" yaml:"retry_max"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	Debug    bool          `json:"debug" yaml:"debug"`
}
