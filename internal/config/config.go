package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Signing   SigningConfig   `mapstructure:"signing"   validate:"required"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Task      TaskConfig      `mapstructure:"task"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"omitempty,gte=4,lte=31"`
}

// SigningConfig configures the audit signing service: the RSA private key
// used for RSA-PSS signatures and the AES key for envelope encryption.
type SigningConfig struct {
	PrivateKeyPath string `mapstructure:"private_key_path" validate:"required"`
	// AESKeyHex is a hex-encoded 32-byte key for AES-256-GCM.
	AESKeyHex string `mapstructure:"aes_key_hex" validate:"required,len=64,hexadecimal"`
}

// PolicyConfig locates the content policy rule set.
type PolicyConfig struct {
	RulesPath string `mapstructure:"rules_path"`
}

// TaskConfig configures the background task runner.
type TaskConfig struct {
	QueueSize           int `mapstructure:"queue_size"             validate:"omitempty,gt=0"`
	WorkerCount         int `mapstructure:"worker_count"           validate:"omitempty,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"omitempty,gt=0"`
}

// AnomalyConfig tunes the usage anomaly detector.
type AnomalyConfig struct {
	WindowSize int     `mapstructure:"window_size" validate:"omitempty,gt=2"`
	Threshold  float64 `mapstructure:"threshold"   validate:"omitempty,gt=0"`
	MinSamples int     `mapstructure:"min_samples" validate:"omitempty,gt=1"`
}

// DashboardConfig configures the operator dashboard broadcast loop.
type DashboardConfig struct {
	BroadcastIntervalSeconds int `mapstructure:"broadcast_interval_seconds" validate:"omitempty,gt=0"`
}
