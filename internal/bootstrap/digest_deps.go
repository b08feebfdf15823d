package bootstrap

import (
	"context"
	"os"

	"digest_server/adapter/out/llm"
	"digest_server/adapter/out/provider/gmail"
	"digest_server/adapter/out/store"
	"digest_server/adapter/out/wordcloud"
	"digest_server/config"
	"digest_server/core/port/out"
	"digest_server/core/sender"
	"digest_server/core/service/digest"

	"github.com/rs/zerolog"
)

// Dependencies wires the digest service with its adapters.
type Dependencies struct {
	Config  *config.Config
	Service *digest.Service
	Store   *store.FileStore
}

// NewDependencies constructs the adapter stack. Batch mode swaps in the
// newsletter prompt pair and enables the wordcloud renderer when a command
// is configured.
func NewDependencies(ctx context.Context, cfg *config.Config, batch bool) (*Dependencies, error) {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	fileStore, err := store.NewFileStore(cfg.DataDir, zlog)
	if err != nil {
		return nil, err
	}

	mail, err := gmail.NewProvider(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, zlog)
	if err != nil {
		return nil, err
	}

	llmCfg := llm.ClientConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.LLMModel,
	}
	if batch {
		llmCfg.SummaryPrompt = llm.NewsletterSummaryPrompt
		llmCfg.TagPrompt = llm.NewsletterTagPrompt
	}
	generator := llm.NewClient(llmCfg)

	var cloud out.CloudRenderer = wordcloud.Disabled{}
	if batch && cfg.WordcloudCmd != "" {
		cloud = wordcloud.NewRenderer(cfg.WordcloudCmd, fileStore.WordcloudDir(), zlog)
	}

	service := digest.NewService(mail, generator, fileStore, cloud, sender.NewTable(), cfg.FetchWindowDays)

	return &Dependencies{
		Config:  cfg,
		Service: service,
		Store:   fileStore,
	}, nil
}
