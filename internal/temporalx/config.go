package temporalx

import (
	"strings"
	"time"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	NamespaceRetention    time.Duration

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	// WorkerConcurrency bounds concurrent activity and workflow task executions.
	WorkerConcurrency int
}

func LoadConfig() Config {
	return Config{
		Address:   strings.TrimSpace(envutil.String("TEMPORAL_ADDRESS", "")),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "stupid-neko"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "progression"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetention:    envutil.Duration("TEMPORAL_NAMESPACE_RETENTION", 7*24*time.Hour),

		DialTimeout:    envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		DialMaxWait:    envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", time.Minute),
		DialBackoff:    envutil.Duration("TEMPORAL_DIAL_BACKOFF", 250*time.Millisecond),
		DialBackoffMax: envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", 5*time.Second),

		WorkerConcurrency: envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 2),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) hasTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
