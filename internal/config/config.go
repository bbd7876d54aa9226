package config

// Config is the coordination engine's on-disk configuration: the
// control bridge's listen address, the resilience layer's circuit and
// retry defaults, and where to find a registry overlay file.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Bridge     BridgeConfig     `yaml:"bridge" json:"bridge"`
	Resilience ResilienceConfig `yaml:"resilience" json:"resilience"`
	Registry   RegistryConfig   `yaml:"registry" json:"registry"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// BridgeConfig configures the control socket.
type BridgeConfig struct {
	SocketPath string `yaml:"socket_path" json:"socket_path"`
}

// ResilienceConfig configures the default circuit breaker and retry
// policy shared by every known circuit, before any per-circuit override.
type ResilienceConfig struct {
	FailureThreshold       int     `yaml:"failure_threshold" json:"failure_threshold"`
	SuccessThreshold       int     `yaml:"success_threshold" json:"success_threshold"`
	RecoveryTimeoutSeconds int     `yaml:"recovery_timeout_seconds" json:"recovery_timeout_seconds"`
	TimeoutSeconds         int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	RetryMaxAttempts       int     `yaml:"retry_max_attempts" json:"retry_max_attempts"`
	RetryInitialDelayMs    int     `yaml:"retry_initial_delay_ms" json:"retry_initial_delay_ms"`
	RetryMultiplier        float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	RetryMaxDelaySeconds   int     `yaml:"retry_max_delay_seconds" json:"retry_max_delay_seconds"`
	MaxConcurrentTasks     int     `yaml:"max_concurrent_tasks,omitempty" json:"max_concurrent_tasks,omitempty"`
}

// RegistryConfig points at an optional overlay file applied on top of
// the built-in default agents.
type RegistryConfig struct {
	OverlayPath string `yaml:"overlay_path,omitempty" json:"overlay_path,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures the Prometheus metrics sink.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
}

// Defaults returns a Config with every field set to the coordination
// engine's built-in defaults, matching the resilience layer's own
// zero-value defaults (failure_threshold=5, success_threshold=3,
// recovery_timeout=60s, timeout=30s, retry max_attempts=3,
// initial_delay=200ms, multiplier=2.0, max_delay=30s).
func Defaults() *Config {
	return &Config{
		Version: CurrentVersion,
		Bridge: BridgeConfig{
			SocketPath: "/tmp/anf_python.sock",
		},
		Resilience: ResilienceConfig{
			FailureThreshold:       5,
			SuccessThreshold:       3,
			RecoveryTimeoutSeconds: 60,
			TimeoutSeconds:         30,
			RetryMaxAttempts:       3,
			RetryInitialDelayMs:    200,
			RetryMultiplier:        2.0,
			RetryMaxDelaySeconds:   30,
			MaxConcurrentTasks:     64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9090",
		},
	}
}

// Load reads and parses the config file at path, resolving $include
// directives and validating its version. A missing path is not an
// error: Defaults() is returned instead, so the daemon can run without
// any config file at all.
func Load(path string) (*Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	return cfg, nil
}
