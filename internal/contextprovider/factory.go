package contextprovider

import (
	"fmt"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
)

// New creates the Provider selected by cfg.Type. An empty type means memory.
func New(cfg config.ContextConfig, etcdCfg config.EtcdConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryProvider(), nil
	case "etcd":
		return NewEtcdProvider(etcdCfg, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported context provider type: %s (supported: memory, etcd)", cfg.Type)
	}
}
