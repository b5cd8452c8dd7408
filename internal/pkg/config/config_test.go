package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(map[string]string{"SESSION_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, "prod", cfg.App.Env)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, DefaultWhopAPIBaseURL, cfg.Whop.APIBaseURL)
	assert.Equal(t, DefaultWhopAuthorizeURL, cfg.Whop.AuthorizeURL)
	assert.Equal(t, DefaultWhopTokenURL, cfg.Whop.TokenURL)
	assert.Equal(t, "http://localhost:3000/api/auth/callback", cfg.Whop.RedirectURI)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr())
	assert.False(t, cfg.Ops.MetricsEnabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Parallel()

	_, err := Load(map[string]string{})
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Load(map[string]string{"SESSION_SECRET": "x", "DB_DRIVER": "oracle"})
	require.Error(t, err)
}

func TestRedirectURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		environ map[string]string
		want    string
		origin  string
	}{
		{
			name:    "explicit wins",
			environ: map[string]string{"WHOP_REDIRECT_URI": "https://app.example/cb", "PUBLIC_DOMAIN": "other.example"},
			want:    "https://app.example/cb",
			origin:  "https://app.example",
		},
		{
			name:    "public domain without scheme",
			environ: map[string]string{"PUBLIC_DOMAIN": "members.example.com"},
			want:    "https://members.example.com/api/auth/callback",
			origin:  "https://members.example.com",
		},
		{
			name:    "public domain with scheme and slash",
			environ: map[string]string{"PUBLIC_DOMAIN": "http://localhost:8080/"},
			want:    "http://localhost:8080/api/auth/callback",
			origin:  "http://localhost:8080",
		},
		{
			name:    "custom port",
			environ: map[string]string{"APP_PORT": "4000"},
			want:    "http://localhost:4000/api/auth/callback",
			origin:  "http://localhost:4000",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.environ["SESSION_SECRET"] = "x"
			cfg, err := Load(tc.environ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Whop.RedirectURI)
			assert.Equal(t, tc.origin, cfg.PublicOrigin())
		})
	}
}

func TestOptionalGroups(t *testing.T) {
	t.Parallel()

	cfg, err := Load(map[string]string{
		"SESSION_SECRET":       "x",
		"APP_ENV":              "dev",
		"METRICS_USER":         "ops",
		"METRICS_PASSWORD":     "pw",
		"S3_BUCKET_NAME":       "events",
		"S3_ACCESS_KEY_ID":     "id",
		"S3_SECRET_ACCESS_KEY": "key",
	})
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.True(t, cfg.Ops.MetricsEnabled())
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "0.0.0.0:3000", cfg.App.Addr())
}
