package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

const minRetention = 24 * time.Hour

// ErrNotRetryable marks failures Retry gives up on immediately.
var ErrNotRetryable = errors.New("temporal: not retryable")

// NewClient connects to the configured cluster, registering the namespace
// first when asked to. A config without an address yields a nil client.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled() {
		log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		return nil, nil
	}
	log = log.With("temporal_address", cfg.Address, "namespace", cfg.Namespace)

	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			return nil, err
		}
	}

	opts, err := clientOptions(log, cfg)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	var c temporalsdkclient.Client
	err = Retry(ctx, log, cfg, "dial", cfg.DialMaxWait, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		var dialErr error
		c, dialErr = temporalsdkclient.DialContext(dialCtx, opts)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s/%s: %w", cfg.Address, cfg.Namespace, err)
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace when the cluster does not know it.
// Hosted namespaces are provisioned elsewhere; this is for local clusters.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	if !cfg.Enabled() || cfg.Namespace == "" {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	// No namespace on these options: the namespace client must be able to
	// talk to the cluster before the namespace exists.
	opts, err := clientOptions(log, cfg)
	if err != nil {
		return err
	}
	ns, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer ns.Close()

	retention := cfg.NamespaceRetention
	if retention < minRetention {
		retention = minRetention
	}

	err = Retry(ctx, log, cfg, "namespace", 10*time.Second, func(ctx context.Context) error {
		_, err := ns.Describe(ctx, cfg.Namespace)
		var missing *serviceerror.NamespaceNotFound
		if !errors.As(err, &missing) {
			return classifyRPC(err)
		}
		err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
			Namespace:                        cfg.Namespace,
			Description:                      "progression sweeps",
			WorkflowExecutionRetentionPeriod: durationpb.New(retention),
		})
		var exists *serviceerror.NamespaceAlreadyExists
		if errors.As(err, &exists) {
			return nil
		}
		if err == nil {
			log.Info("Temporal namespace registered", "retention", retention.String())
		}
		return classifyRPC(err)
	})
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", cfg.Namespace, err)
	}
	return nil
}

// Retry runs fn until it succeeds, fails with ErrNotRetryable, ctx ends, or
// budget elapses. A non-positive budget means a single attempt.
func Retry(ctx context.Context, log *logger.Logger, cfg Config, what string, budget time.Duration, fn func(context.Context) error) error {
	deadline := time.Now().Add(budget)
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("Temporal "+what+" succeeded", "attempts", attempt)
			}
			return nil
		}
		if errors.Is(err, ErrNotRetryable) || budget <= 0 || time.Now().After(deadline) {
			return err
		}
		wait := Backoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt)
		log.Warn("Temporal "+what+" failed; retrying", "attempt", attempt, "retry_in", wait.String(), "error", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func clientOptions(log *logger.Logger, cfg Config) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if !cfg.hasTLS() {
		return opts, nil
	}
	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return opts, err
	}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must be set together")
	}
	pair, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return out, nil
	}
	caPEM, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("temporal tls: no certificates in %s", cfg.ClientCAPath)
	}
	out.RootCAs = roots
	return out, nil
}

// Backoff doubles base per attempt, capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && (max <= 0 || d < max); i++ {
		d *= 2
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// classifyRPC marks errors that retrying cannot fix.
func classifyRPC(err error) error {
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrNotRetryable, err)
}
