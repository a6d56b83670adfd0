package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// preserveEnv snapshots the given keys and restores them on cleanup.
// It returns a function that unsets every key.
func preserveEnv(t *testing.T, keys ...string) func() {
	t.Helper()
	original := make(map[string]string, len(keys))
	for _, k := range keys {
		original[k] = os.Getenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
	return func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	}
}

func TestLoad(t *testing.T) {
	clearEnv := preserveEnv(t,
		"DS160_APP_NAME",
		"DS160_APP_ENV",
		"DS160_APP_PORT",
		"DS160_DATABASE_DRIVER",
		"DS160_DATABASE_HOST",
		"DS160_DATABASE_PORT",
		"DS160_DATABASE_USER",
		"DS160_DATABASE_PASSWORD",
		"DS160_DATABASE_DBNAME",
		"DS160_DATABASE_SSLMODE",
		"DS160_DATABASE_MAX_OPEN_CONNS",
		"DS160_DATABASE_MAX_IDLE_CONNS",
		"DS160_WIZARD_DELETE_CONFIRMATIONS",
		"DS160_WIZARD_DELETE_WINDOW",
		"DS160_WIZARD_REQUIRE_CLIENT_SESSION",
		"DS160_KAFKA_ENABLED",
		"DS160_KAFKA_BROKERS",
		"DS160_JWT_SECRET",
	)

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ds160-wizard", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ds160", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3, cfg.Wizard.DeleteConfirmations)
		assert.Equal(t, 30*time.Second, cfg.Wizard.DeleteWindow)
		assert.True(t, cfg.Wizard.RequireClientSession)
		assert.Equal(t, "ds160.form-events", cfg.Kafka.Topic)
		assert.Equal(t, "ds160-wizard", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with DS160 prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_APP_NAME", "test-app")
		os.Setenv("DS160_APP_PORT", "9000")
		os.Setenv("DS160_DATABASE_HOST", "testdb.local")
		os.Setenv("DS160_DATABASE_PORT", "5433")
		os.Setenv("DS160_DATABASE_PASSWORD", "testpass")
		os.Setenv("DS160_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("DS160_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("DS160_WIZARD_DELETE_CONFIRMATIONS", "5")
		os.Setenv("DS160_WIZARD_DELETE_WINDOW", "45s")
		os.Setenv("DS160_WIZARD_REQUIRE_CLIENT_SESSION", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5, cfg.Wizard.DeleteConfirmations)
		assert.Equal(t, 45*time.Second, cfg.Wizard.DeleteWindow)
		assert.False(t, cfg.Wizard.RequireClientSession)
	})

	t.Run("accepts sqlite driver", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_DATABASE_DRIVER", "sqlite")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "ds160.db", cfg.Database.SQLitePath)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("DS160_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects negative delete confirmations", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_WIZARD_DELETE_CONFIRMATIONS", "-2")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete_confirmations")
	})

	t.Run("requires brokers when kafka is enabled", func(t *testing.T) {
		clearEnv()
		os.Setenv("DS160_KAFKA_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kafka.brokers")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	clearEnv := preserveEnv(t,
		"DS160_APP_ENV",
		"DS160_JWT_SECRET",
		"DS160_ADMIN_PASSWORD_HASH",
		"DS160_DATABASE_DRIVER",
		"DS160_DATABASE_PASSWORD",
		"DS160_DATABASE_SSLMODE",
		"DS160_WIZARD_REQUIRE_CLIENT_SESSION",
		"DS160_TELEMETRY_DB_LOG_FULL_SQL",
	)

	setValidProductionBase := func() {
		os.Setenv("DS160_APP_ENV", "production")
		os.Setenv("DS160_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("DS160_ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
		os.Setenv("DS160_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DS160_DATABASE_SSLMODE", "require")
	}

	tests := []struct {
		name    string
		mutate  func()
		wantErr string
	}{
		{"requires jwt.secret", func() { os.Unsetenv("DS160_JWT_SECRET") }, "jwt.secret is required in production"},
		{"requires long jwt.secret", func() { os.Setenv("DS160_JWT_SECRET", "short-secret") }, "jwt.secret must be at least 32 characters"},
		{"requires admin hash", func() { os.Unsetenv("DS160_ADMIN_PASSWORD_HASH") }, "admin.password_hash is required"},
		{"requires postgres", func() { os.Setenv("DS160_DATABASE_DRIVER", "sqlite") }, "database.driver must be postgres in production"},
		{"requires database.password", func() { os.Unsetenv("DS160_DATABASE_PASSWORD") }, "database.password is required in production"},
		{"requires SSL", func() { os.Setenv("DS160_DATABASE_SSLMODE", "disable") }, "database.sslmode cannot be 'disable' in production"},
		{"requires client sessions", func() { os.Setenv("DS160_WIZARD_REQUIRE_CLIENT_SESSION", "false") }, "require_client_session"},
		{"forbids full SQL in traces", func() { os.Setenv("DS160_TELEMETRY_DB_LOG_FULL_SQL", "true") }, "db_log_full_sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			setValidProductionBase()
			tt.mutate()

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
