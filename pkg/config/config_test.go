package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

const fullConfig = `
upload:
  build_name: app-release.apk
  dont_upload: false
  workspace_dir: /ci/workspace
  artifact_dir: /ci/workspace/archive
  api_key: literal-key
proxy:
  hostname: proxy.internal
  port: 3128
  username: ci
  password: proxy-pass
  allow_unverified_tls: true
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "app-release.apk", cfg.Upload.BuildName)
	assert.False(t, cfg.Upload.DontUpload)
	assert.Equal(t, "/ci/workspace", cfg.Upload.WorkspaceDir)
	assert.Equal(t, "/ci/workspace/archive", cfg.Upload.ArtifactDir)
	assert.Equal(t, "literal-key", cfg.Upload.APIKey.Plaintext())

	assert.Equal(t, "proxy.internal", cfg.Proxy.Hostname)
	assert.Equal(t, 3128, cfg.Proxy.Port)
	assert.Equal(t, "ci", cfg.Proxy.Username)
	assert.Equal(t, "proxy-pass", cfg.Proxy.Password.Plaintext())
	assert.True(t, cfg.Proxy.AllowUnverifiedTLS)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
upload:
  build_name: app.ipa
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkspaceDir, cfg.Upload.WorkspaceDir)
	assert.Empty(t, cfg.Upload.ArtifactDir)
	assert.True(t, cfg.Upload.APIKey.IsZero())
	assert.Empty(t, cfg.Proxy.Hostname)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "app-release.apk", cfg.Upload.BuildName)
			},
		},
		{
			name: "string override - build_name",
			envVars: map[string]string{
				"DTUPLOAD_UPLOAD_BUILD_NAME": "app-debug.apk",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "app-debug.apk", cfg.Upload.BuildName)
			},
		},
		{
			name: "boolean override - dont_upload",
			envVars: map[string]string{
				"DTUPLOAD_UPLOAD_DONT_UPLOAD": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Upload.DontUpload)
			},
		},
		{
			name: "secret override - api_key",
			envVars: map[string]string{
				"DTUPLOAD_UPLOAD_API_KEY": "env-key",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env-key", cfg.Upload.APIKey.Plaintext())
			},
		},
		{
			name: "proxy override - hostname and port",
			envVars: map[string]string{
				"DTUPLOAD_PROXY_HOSTNAME": "other-proxy.internal",
				"DTUPLOAD_PROXY_PORT":     "8080",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "other-proxy.internal", cfg.Proxy.Hostname)
				assert.Equal(t, 8080, cfg.Proxy.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, fullConfig))
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "valid apk",
			mutate: func(cfg *Config) {},
		},
		{
			name:   "valid ipa",
			mutate: func(cfg *Config) { cfg.Upload.BuildName = "MyApp.ipa" },
		},
		{
			name:   "valid aab uppercase",
			mutate: func(cfg *Config) { cfg.Upload.BuildName = "bundle.AAB" },
		},
		{
			name:    "empty build name",
			mutate:  func(cfg *Config) { cfg.Upload.BuildName = "" },
			wantErr: "build_name is required",
		},
		{
			name:    "too short",
			mutate:  func(cfg *Config) { cfg.Upload.BuildName = ".apk" },
			wantErr: "too short",
		},
		{
			name:    "bad extension",
			mutate:  func(cfg *Config) { cfg.Upload.BuildName = "app-release.zip" },
			wantErr: "must end with",
		},
		{
			name: "proxy without port",
			mutate: func(cfg *Config) {
				cfg.Proxy.Hostname = "proxy.internal"
				cfg.Proxy.Port = 0
			},
			wantErr: "proxy.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Upload: UploadConfig{BuildName: "app-release.apk"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestProxyConfig(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.ProxyConfig())

	cfg.Proxy = ProxyConfig{Hostname: "proxy.internal", Port: 3128}

	pc := cfg.ProxyConfig()
	require.NotNil(t, pc)
	assert.True(t, pc.Enabled())
	assert.Equal(t, "proxy.internal:3128", pc.Address())
}
