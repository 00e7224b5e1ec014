package warning

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aemetdash/aemetdash/internal/config"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

// ClientConfig holds configuration for the warning client.
type ClientConfig struct {
	Config   *config.Config
	OpenData *opendata.Client
	Logger   zerolog.Logger
}

// Client fetches the active warning bundle for a geographic area.
type Client struct {
	cfg      *config.Config
	opendata *opendata.Client
	parser   *Parser
	logger   zerolog.Logger
}

// NewClient creates a new warning client.
func NewClient(cfg ClientConfig) *Client {
	od := cfg.OpenData
	if od == nil {
		odCfg := opendata.DefaultClientConfig("warnings")
		odCfg.Logger = cfg.Logger
		od = opendata.NewClient(odCfg)
	}

	return &Client{
		cfg:      cfg.Config,
		opendata: od,
		parser:   NewParser(cfg.Logger),
		logger:   cfg.Logger,
	}
}

// Current fetches and parses the active warnings for an area code ("esp" for
// the whole country). A fetch with no usable payload yields an empty slice.
func (c *Client) Current(ctx context.Context, area string, notify opendata.Notifier) ([]Warning, error) {
	url := c.cfg.URL(c.cfg.Endpoints.Warnings.Current, map[string]string{
		"area": area,
	})

	archive, err := c.opendata.FetchArchive(ctx, url, notify)
	if err != nil {
		if errors.Is(err, opendata.ErrNoData) || errors.Is(err, opendata.ErrExhausted) {
			return []Warning{}, nil
		}
		return nil, err
	}

	warnings := c.parser.ParseArchive(archive)
	if warnings == nil {
		warnings = []Warning{}
	}
	return warnings, nil
}
