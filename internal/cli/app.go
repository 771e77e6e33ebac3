package cli

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/jrsteele09/storefront-session/token"
)

// app is the process wiring: one token store, one backend client and the one session built on them
type app struct {
	cfg     config.Config
	store   *token.FileStore
	client  *auth.Client
	session *session.Context
}

func newApp(cfg config.Config) (*app, error) {
	key, err := token.LoadOrCreateKey(cfg.GetTokenKeyFile())
	if err != nil {
		return nil, fmt.Errorf("[cli newApp] token key: %w", err)
	}
	store, err := token.NewFileStore(cfg.GetTokenFile(), key)
	if err != nil {
		return nil, fmt.Errorf("[cli newApp] token store: %w", err)
	}

	client := auth.NewClient(cfg.GetAuthBaseURL(), &http.Client{Timeout: cfg.GetRequestTimeout()})

	return &app{
		cfg:     cfg,
		store:   store,
		client:  client,
		session: session.New(auth.NewValidator(store, client), store),
	}, nil
}
