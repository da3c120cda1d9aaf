package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "bankloan.db", cfg.Database.DSN)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.True(t, cfg.Loans.StrictPaymentOrder)
	assert.Equal(t, 30, cfg.Loans.InstallmentIntervalDays)
	assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BANKLOAN_APP_PORT", "9090")
	t.Setenv("BANKLOAN_DATABASE_DRIVER", "postgres")
	t.Setenv("BANKLOAN_DATABASE_DSN", "postgres://localhost/bankloan?sslmode=disable")
	t.Setenv("BANKLOAN_LOANS_STRICT_PAYMENT_ORDER", "false")
	t.Setenv("BANKLOAN_JWT_ACCESS_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Loans.StrictPaymentOrder)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := "[app]\nport = \"7070\"\n\n[loans]\ninstallment_interval_days = 31\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, 31, cfg.Loans.InstallmentIntervalDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown driver",
			env:     map[string]string{"BANKLOAN_DATABASE_DRIVER": "mysql"},
			wantErr: `database.driver must be sqlite3 or postgres, got "mysql"`,
		},
		{
			name:    "production short secret",
			env:     map[string]string{"BANKLOAN_APP_ENV": "production", "BANKLOAN_BOOTSTRAP_ADMIN_PASSWORD": "s3cret-pass"},
			wantErr: "jwt.secret must be at least 32 characters in production",
		},
		{
			name: "production default password",
			env: map[string]string{
				"BANKLOAN_APP_ENV":    "production",
				"BANKLOAN_JWT_SECRET": "0123456789abcdef0123456789abcdef",
			},
			wantErr: "bootstrap.admin_password must be changed in production",
		},
		{
			name:    "bad interval",
			env:     map[string]string{"BANKLOAN_LOANS_INSTALLMENT_INTERVAL_DAYS": "0"},
			wantErr: "loans.installment_interval_days must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := fromViper(viper.New())
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
