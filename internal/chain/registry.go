package chain

import (
	"context"
	"sync"

	"custody/internal/config"
	"custody/internal/constant"
	"custody/internal/errs"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zeromicro/go-zero/core/logx"
)

// Dialer opens a backend connection to an RPC endpoint.
type Dialer func(ctx context.Context, rawurl string) (Backend, error)

func ethDial(ctx context.Context, rawurl string) (Backend, error) {
	return ethclient.DialContext(ctx, rawurl)
}

// Registry caches one probed Provider per network id. It replaces the usual
// module-global provider map: the registry is constructed once and handed to
// whoever needs chain access.
type Registry struct {
	mu       sync.Mutex
	networks map[string]config.NetworkConf
	entries  map[string]*registryEntry
	dial     Dialer
}

// registryEntry serializes dialing per network. Holding one lock per network
// keeps a slow probe on one chain from blocking acquisition on every other.
type registryEntry struct {
	mu       sync.Mutex
	provider *Provider
}

func NewRegistry(networks map[string]config.NetworkConf) *Registry {
	return NewRegistryWithDialer(networks, ethDial)
}

// NewRegistryWithDialer builds a registry over a custom transport. Tests use
// it to substitute fake backends for the ethclient dialer.
func NewRegistryWithDialer(networks map[string]config.NetworkConf, dial Dialer) *Registry {
	return &Registry{
		networks: networks,
		entries:  make(map[string]*registryEntry),
		dial:     dial,
	}
}

func (r *Registry) entry(networkId string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[networkId]
	if !ok {
		e = &registryEntry{}
		r.entries[networkId] = e
	}
	return e
}

// Get returns the cached handle for networkId, or dials and probes a new one.
// A handle is never returned without having passed the liveness probe at
// least once; probe failure evicts and surfaces NetworkUnavailable.
func (r *Registry) Get(ctx context.Context, networkId string) (*Provider, error) {
	conf, ok := r.networks[networkId]
	if !ok {
		return nil, errs.Newf(errs.KindInvalidInput, "network %s not supported", networkId)
	}
	if conf.RpcUrl == "" {
		return nil, errs.Newf(errs.KindInvalidInput, "no RPC URL configured for network %s", networkId)
	}

	e := r.entry(networkId)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.provider != nil {
		return e.provider, nil
	}

	// Testnets get a shorter probe window, mainnets a longer one.
	probeTimeout := constant.ProbeTimeoutMainnet
	if conf.Testnet {
		probeTimeout = constant.ProbeTimeoutTestnet
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	logx.Infof("正在初始化网络 %s 的 RPC 连接: %s", networkId, conf.RpcUrl)
	backend, err := r.dial(probeCtx, conf.RpcUrl)
	if err != nil {
		logx.Errorf("网络 %s RPC 连接失败: %v", networkId, err)
		return nil, errs.Wrap(errs.KindNetworkUnavailable, "dial "+networkId, err)
	}

	p := &Provider{
		NetworkId:    networkId,
		Conf:         conf,
		backend:      backend,
		pollInterval: constant.ReceiptPollInterval,
	}
	if err := r.probe(probeCtx, p); err != nil {
		backend.Close()
		logx.Errorf("网络 %s 探活失败: %v", networkId, err)
		return nil, err
	}

	logx.Infof("网络 %s 连接就绪 (ChainId=%d)", networkId, conf.ChainId)
	e.provider = p
	return p, nil
}

// probe checks that the endpoint responds and serves the expected chain.
func (r *Registry) probe(ctx context.Context, p *Provider) error {
	chainId, err := p.backend.ChainID(ctx)
	if err != nil {
		return errs.Wrap(errs.KindNetworkUnavailable, p.NetworkId+" is not responding", err)
	}
	if chainId.Int64() != p.Conf.ChainId {
		return errs.Newf(errs.KindNetworkUnavailable,
			"network %s returned chain id %d, expected %d", p.NetworkId, chainId.Int64(), p.Conf.ChainId)
	}
	if _, err := p.backend.BlockNumber(ctx); err != nil {
		return errs.Wrap(errs.KindNetworkUnavailable, p.NetworkId+" is not responding", err)
	}
	return nil
}

// Evict drops and closes the cached handle for networkId, forcing the next
// Get to dial and probe again.
func (r *Registry) Evict(networkId string) {
	e := r.entry(networkId)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.provider != nil {
		e.provider.Close()
		e.provider = nil
	}
}

// Close releases every cached handle.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.provider != nil {
			e.provider.Close()
			e.provider = nil
		}
		e.mu.Unlock()
	}
}
