package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// Service types.
const (
	ServiceHTTP  = "_http._tcp"
	ServiceHTTPS = "_https._tcp"

	DefaultDomain = "local."
)

// Errors returned by the advertiser.
var (
	ErrAlreadyStarted = errors.New("discovery: already advertising")
	ErrInvalidConfig  = errors.New("discovery: invalid configuration")
)

// Server is a running registration.
type Server interface {
	Shutdown()
}

// ServerFactory registers a service. Tests substitute a fake.
type ServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error)
}

type zeroconfFactory struct{}

func (zeroconfFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Server, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// Config describes what to advertise.
type Config struct {
	Instance     string
	Domain       string
	Port         int
	TLS          bool
	Version      string
	AuthRequired bool

	// Interfaces limits the advertisement. Nil means all.
	Interfaces []net.Interface

	// Factory defaults to grandcat/zeroconf.
	Factory ServerFactory
}

// Advertiser owns one DNS-SD registration.
type Advertiser struct {
	cfg     Config
	factory ServerFactory

	mu     sync.Mutex
	server Server
}

// NewAdvertiser validates cfg and fills defaults.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.Instance == "" {
		return nil, fmt.Errorf("%w: instance name is required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d", ErrInvalidConfig, cfg.Port)
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}

	factory := cfg.Factory
	if factory == nil {
		factory = zeroconfFactory{}
	}

	return &Advertiser{cfg: cfg, factory: factory}, nil
}

// ServiceType returns the DNS-SD service type for the configured scheme.
func (a *Advertiser) ServiceType() string {
	if a.cfg.TLS {
		return ServiceHTTPS
	}
	return ServiceHTTP
}

// TXT returns the TXT record entries.
func (a *Advertiser) TXT() []string {
	txt := []string{"path=/"}
	if a.cfg.Version != "" {
		txt = append(txt, "version="+a.cfg.Version)
	}
	if a.cfg.AuthRequired {
		txt = append(txt, "auth=pin")
	} else {
		txt = append(txt, "auth=none")
	}
	return txt
}

// Start registers the service.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyStarted
	}

	server, err := a.factory.Register(a.cfg.Instance, a.ServiceType(), a.cfg.Domain, a.cfg.Port, a.TXT(), a.cfg.Interfaces)
	if err != nil {
		return fmt.Errorf("registering %s: %w", a.ServiceType(), err)
	}
	a.server = server
	return nil
}

// Stop withdraws the registration. Safe to call when not started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}
