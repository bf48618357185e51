package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/alttext"
	"github.com/lehigh-university-libraries/alttext/internal/analysis"
	"github.com/lehigh-university-libraries/alttext/internal/azure"
	"github.com/lehigh-university-libraries/alttext/internal/config"
	"github.com/lehigh-university-libraries/alttext/internal/gemini"
	"github.com/lehigh-university-libraries/alttext/internal/images"
	"github.com/lehigh-university-libraries/alttext/internal/providers"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
)

// app holds the collaborators every command needs
type app struct {
	settings *config.Store
	store    *storage.SQLiteStore
	client   *analysis.Client
	service  *alttext.Service
}

func newApp(opts *rootOptions) (*app, error) {
	settings, err := config.Load(opts.settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	store, err := storage.Open(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open media library: %w", err)
	}

	fetcher := images.NewFetcher()
	client := analysis.NewClient(settings,
		map[string]providers.Analyzer{
			config.ProviderAzure:  azure.NewVision(),
			config.ProviderGemini: gemini.New(fetcher),
		},
		azure.NewTranslator(),
	)

	return &app{
		settings: settings,
		store:    store,
		client:   client,
		service:  alttext.NewService(store, client, fetcher),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
