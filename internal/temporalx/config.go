package temporalx

import (
	"time"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout            time.Duration
	DialMaxWait            time.Duration
	AutoRegisterNamespace  bool
	NamespaceRetentionDays int
	WorkerConcurrency      int
}

// Enabled reports whether jobs should be dispatched through Temporal.
func (c Config) Enabled() bool { return c.Address != "" }

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "coursegen"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "coursegen"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:            envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		DialMaxWait:            envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", 60*time.Second),
		AutoRegisterNamespace:  envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetentionDays: envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
		WorkerConcurrency:      envutil.Int("WORKER_CONCURRENCY", 4),
	}
}
