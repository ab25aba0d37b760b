// Package config loads and validates the dtupload configuration file.
// Every key can be overridden through DTUPLOAD_* environment variables,
// which is how most CI systems inject per-job settings.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/datatheorem/dtupload/pkg/secret"
	"github.com/datatheorem/dtupload/pkg/transport"
)

const (
	// DefaultWorkspaceDir is the job workspace searched for the build
	// when no explicit workspace is configured.
	DefaultWorkspaceDir = "."

	// envPrefix namespaces environment overrides, e.g.
	// DTUPLOAD_UPLOAD_BUILD_NAME overrides upload.build_name.
	envPrefix = "DTUPLOAD"
)

// allowedExtensions are the mobile build bundle formats the Upload API
// accepts. The suffix gate runs at configuration time; the locator and
// uploader take the name as given.
var allowedExtensions = []string{".apk", ".ipa", ".aab"}

// Config is the root configuration for dtupload.
type Config struct {
	Upload UploadConfig `mapstructure:"upload"`
	Proxy  ProxyConfig  `mapstructure:"proxy"`
}

// UploadConfig describes what to upload and how to authenticate.
type UploadConfig struct {
	// BuildName is the exact file name of the build to locate and upload.
	BuildName string `mapstructure:"build_name"`

	// DontUpload performs artifact discovery only, skipping all network
	// activity. Used to verify a job's configuration.
	DontUpload bool `mapstructure:"dont_upload"`

	// WorkspaceDir is the job workspace root.
	WorkspaceDir string `mapstructure:"workspace_dir"`

	// ArtifactDir is the CI artifact-archive directory, searched before
	// the workspace. Empty means the job archives nothing.
	ArtifactDir string `mapstructure:"artifact_dir"`

	// APIKey is a literal Upload API key. When empty the key is resolved
	// from the environment instead (see APIKeyEnv).
	APIKey secret.Secret `mapstructure:"api_key"`

	// APIKeyEnv names the environment variable holding the Upload API
	// key. Empty means DATA_THEOREM_UPLOAD_API_KEY.
	APIKeyEnv string `mapstructure:"api_key_env"`

	// ResultFile, when set, receives the final operation result as JSON.
	ResultFile string `mapstructure:"result_file"`
}

// ProxyConfig describes an optional forward proxy.
type ProxyConfig struct {
	Hostname           string        `mapstructure:"hostname"`
	Port               int           `mapstructure:"port"`
	Username           string        `mapstructure:"username"`
	Password           secret.Secret `mapstructure:"password"`
	AllowUnverifiedTLS bool          `mapstructure:"allow_unverified_tls"`
}

// defaults registers every known key with viper so environment overrides
// apply even for keys absent from the config file.
var defaults = map[string]any{
	"upload.build_name":          "",
	"upload.dont_upload":         false,
	"upload.workspace_dir":       DefaultWorkspaceDir,
	"upload.artifact_dir":        "",
	"upload.api_key":             "",
	"upload.api_key_env":         "",
	"upload.result_file":         "",
	"proxy.hostname":             "",
	"proxy.port":                 0,
	"proxy.username":             "",
	"proxy.password":             "",
	"proxy.allow_unverified_tls": false,
}

// Load reads and parses the configuration file at path, applying
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToSecretHookFunc(),
	))

	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	name := c.Upload.BuildName
	if name == "" {
		return fmt.Errorf("upload.build_name is required")
	}

	if len(name) < 5 {
		return fmt.Errorf("build name %q is too short", name)
	}

	if !hasAllowedExtension(name) {
		return fmt.Errorf(
			"build name %q must end with one of %s",
			name, strings.Join(allowedExtensions, ", "),
		)
	}

	if c.Proxy.Hostname != "" && (c.Proxy.Port <= 0 || c.Proxy.Port > 65535) {
		return fmt.Errorf("proxy.port %d is invalid", c.Proxy.Port)
	}

	return nil
}

// ProxyConfig converts the proxy section into the transport layer's
// config. Returns nil when no proxy is configured.
func (c *Config) ProxyConfig() *transport.ProxyConfig {
	if c.Proxy.Hostname == "" {
		return nil
	}

	return &transport.ProxyConfig{
		Hostname:           c.Proxy.Hostname,
		Port:               c.Proxy.Port,
		Username:           c.Proxy.Username,
		Password:           c.Proxy.Password,
		AllowUnverifiedTLS: c.Proxy.AllowUnverifiedTLS,
	}
}

// hasAllowedExtension checks the build name suffix case-insensitively.
func hasAllowedExtension(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// stringToSecretHookFunc decodes plain config strings into secret.Secret
// values so secrets never travel as bare strings past the config layer.
func stringToSecretHookFunc() mapstructure.DecodeHookFuncType {
	secretType := reflect.TypeOf(secret.Secret{})

	return func(from, to reflect.Type, data any) (any, error) {
		if to != secretType || from.Kind() != reflect.String {
			return data, nil
		}

		value, ok := data.(string)
		if !ok {
			return data, nil
		}

		return secret.New(value), nil
	}
}
