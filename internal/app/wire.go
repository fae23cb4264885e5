package app

import (
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/relay"
	"github.com/VanshAg283/FCS-Project/internal/services/keystore"
	"github.com/VanshAg283/FCS-Project/internal/services/message"
	"github.com/VanshAg283/FCS-Project/internal/store"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Store    *store.FileStore
	Relay    *relay.HTTP
	Keys     *keystore.Service
	Messages *message.Service
}

// NewWire constructs the dependency graph from cfg. Hooks are handed to the
// message pipeline as-is.
func NewWire(cfg Config, log *zap.Logger, hooks message.Options) *Wire {
	if log == nil {
		log = zap.NewNop()
	}

	// File-based stores
	fs := store.NewFileStore(cfg.Home)

	// Relay client (uses provided HTTP client)
	rc := relay.NewHTTP(cfg.RelayURL, cfg.Token)
	if cfg.HTTP != nil {
		rc.HTTP = cfg.HTTP
	}

	keys := keystore.New(cfg.User, fs, fs, rc, log.Named("keystore"))

	dialer := transport.NewWSDialer(cfg.RelayURL, cfg.Token)
	hooks.HistoryWorkers = cfg.HistoryWorkers
	hooks.Logger = log.Named("message")
	msgs := message.New(cfg.User, keys, rc, dialer, hooks)

	return &Wire{Store: fs, Relay: rc, Keys: keys, Messages: msgs}
}
