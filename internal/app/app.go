package app

import (
	"errors"

	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/services/message"
)

var (
	ErrNoSession    = errors.New("not logged in: run `fcschat login` or set FCSCHAT_USER and FCSCHAT_TOKEN")
	ErrNoPassphrase = errors.New("passphrase required (-p or FCSCHAT_PASSPHRASE)")
)

// App is the wired client for one local user.
type App struct {
	*Wire
	Config Config
	Log    *zap.Logger
}

func New(cfg Config, log *zap.Logger, hooks message.Options) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{Wire: NewWire(cfg, log, hooks), Config: cfg, Log: log}
}

// RequireSession fails unless a user id and token are configured.
func (a *App) RequireSession() error {
	if a.Config.User == "" || a.Config.Token == "" {
		return ErrNoSession
	}
	return nil
}

// Unlock loads the private key with the configured passphrase.
func (a *App) Unlock() error {
	if a.Config.Passphrase == "" {
		return ErrNoPassphrase
	}
	return a.Keys.Load(a.Config.Passphrase)
}

// Close tears down the message pipeline and flushes the log.
func (a *App) Close() error {
	err := a.Messages.Close()
	_ = a.Log.Sync()
	return err
}
