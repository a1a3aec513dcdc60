// Package app assembles the services from a config.Config. Both entry points
// share it.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"dream-agent/internal/artifacts"
	"dream-agent/internal/auth"
	"dream-agent/internal/compactor"
	"dream-agent/internal/config"
	"dream-agent/internal/integrations/gemini"
	"dream-agent/internal/integrations/openai"
	"dream-agent/internal/integrations/paramstore"
	"dream-agent/internal/modelcall"
	"dream-agent/internal/observability"
	"dream-agent/internal/repository"
	"dream-agent/internal/repository/jsonfile"
	"dream-agent/internal/usecase"
)

const (
	StoreDynamoDB = "dynamodb"
	StoreLocal    = "local"
)

// App holds the services the HTTP layer drives.
type App struct {
	Sessions *usecase.SessionService
	Media    *usecase.MediaService
	Auth     *auth.Service
	// Store names the backend serving reads: StoreDynamoDB or StoreLocal.
	Store string
}

// New wires every service. Only a broken local store is fatal: an
// unreachable durable store or missing model credentials degrade the service
// instead.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	logger := observability.LoggerFromContext(ctx)
	b := &builder{cfg: cfg}

	local, err := jsonfile.Open(cfg.Store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("app: open local store: %w", err)
	}

	var (
		primary usecase.SessionStore
		users   auth.UserStore
		store   = StoreLocal
	)
	if cfg.Store.Durable() {
		sessions, accounts, err := b.dynamo(ctx)
		if err != nil {
			logger.Warn("durable store unavailable, using local store", "err", err)
		} else {
			primary, users, store = sessions, accounts, StoreDynamoDB
		}
	}
	chain, err := usecase.NewStoreChain(primary, local)
	if err != nil {
		return nil, err
	}

	memory, err := compactor.New(chain)
	if err != nil {
		return nil, err
	}

	model := b.textModel(ctx)
	engine := cfg.Engine
	interpreter, err := usecase.NewInterpreter(model, memory, usecase.InterpreterConfig{
		Timeout: engine.Timeout,
		Limits: compactor.Limits{
			MaxSessions:  engine.PreviousN,
			MaxFollowups: engine.PrevFollowupsN,
			MaxChars:     engine.MaxContextChars,
		},
		ForceOffline: engine.ForceOffline,
	})
	if err != nil {
		return nil, err
	}
	followups := usecase.NewFollowupEngine(model, engine.Timeout, engine.FollowupHistoryN)
	titles := usecase.NewTitler(model, engine.Timeout)

	sessions, err := usecase.NewSessionService(chain, interpreter, followups, titles,
		artifacts.New(cfg.Store.OutputDir), usecase.SessionServiceConfig{ForceOffline: engine.ForceOffline})
	if err != nil {
		return nil, err
	}

	media, err := usecase.NewMediaService(b.imageModel(ctx), titles, chain, 0)
	if err != nil {
		return nil, err
	}

	authSvc, err := b.auth(ctx, users)
	if err != nil {
		return nil, err
	}

	logger.Info("services ready",
		"store", store,
		"llm_available", sessions.ModelAvailable(),
		"force_offline", engine.ForceOffline,
	)
	return &App{Sessions: sessions, Media: media, Auth: authSvc, Store: store}, nil
}

type builder struct {
	cfg *config.Config

	awsCfg *aws.Config
	ssm    paramstore.TokenReader
}

func (b *builder) aws(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	b.awsCfg = &cfg
	return cfg, nil
}

func (b *builder) dynamo(ctx context.Context) (*repository.Client, *repository.UserClient, error) {
	awsCfg, err := b.aws(ctx)
	if err != nil {
		return nil, nil, err
	}
	endpoint, custom, err := b.cfg.Store.Endpoint()
	if err != nil {
		return nil, nil, err
	}
	api := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if custom {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	sessions, err := repository.New(api, b.cfg.Store.SessionsTable())
	if err != nil {
		return nil, nil, err
	}
	users, err := repository.NewUsers(api, b.cfg.Store.UsersTable())
	if err != nil {
		return nil, nil, err
	}
	return sessions, users, nil
}

// secret returns a lazily resolved SSM secret, or nil when no parameter
// prefix is configured.
func (b *builder) secret(ctx context.Context, name string) (*paramstore.Secret, error) {
	if b.cfg.ParamPrefix == "" {
		return nil, nil
	}
	if b.ssm == nil {
		awsCfg, err := b.aws(ctx)
		if err != nil {
			return nil, err
		}
		client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, err
		}
		b.ssm = client
	}
	return paramstore.NewSecret(b.ssm, paramstore.ParamName(b.cfg.ParamPrefix, name))
}

// resolve prefers the configured value and falls back to SSM.
func (b *builder) resolve(ctx context.Context, value, param string) (string, error) {
	if value != "" {
		return value, nil
	}
	s, err := b.secret(ctx, param)
	if err != nil || s == nil {
		return "", err
	}
	return s.Resolve(ctx)
}

func (b *builder) openAIKeys(ctx context.Context) (openai.KeySource, error) {
	if b.cfg.LLM.OpenAIAPIKey != "" {
		return openai.StaticKey(b.cfg.LLM.OpenAIAPIKey), nil
	}
	s, err := b.secret(ctx, paramstore.OpenAITokenParam)
	if err != nil || s == nil {
		return nil, err
	}
	return s, nil
}

// textModel picks the provider. A nil result leaves the engines on the
// offline fallback.
func (b *builder) textModel(ctx context.Context) modelcall.Generator {
	logger := observability.LoggerFromContext(ctx)
	llm := b.cfg.LLM

	if llm.Provider == config.ProviderAuto || llm.Provider == config.ProviderOpenAI {
		keys, err := b.openAIKeys(ctx)
		switch {
		case err != nil:
			logger.Warn("openai key source unavailable", "err", err)
		case keys != nil:
			client, err := openai.NewClient(keys, openai.WithBaseURL(llm.OpenAIBaseURL), openai.WithModel(llm.OpenAIModel))
			if err == nil {
				logger.Info("text model configured", "provider", config.ProviderOpenAI, "model", client.Model())
				return client
			}
			logger.Warn("failed to create OpenAI client", "err", err)
		}
		if llm.Provider == config.ProviderOpenAI {
			logger.Warn("no text model available, interpretations will be offline")
			return nil
		}
	}

	key, err := b.resolve(ctx, llm.GeminiAPIKey, paramstore.GeminiTokenParam)
	if err != nil {
		logger.Warn("gemini key unavailable", "err", err)
	}
	if key != "" {
		client, err := gemini.NewClient(ctx, key, gemini.WithTextModel(llm.GeminiTextModel))
		if err == nil {
			logger.Info("text model configured", "provider", config.ProviderGemini, "model", llm.GeminiTextModel)
			return client
		}
		logger.Warn("failed to create Gemini client", "err", err)
	}
	logger.Warn("no text model available, interpretations will be offline")
	return nil
}

func (b *builder) imageModel(ctx context.Context) usecase.ImageGenerator {
	logger := observability.LoggerFromContext(ctx)
	llm := b.cfg.LLM

	key, err := b.resolve(ctx, llm.GeminiImageAPIKey, paramstore.GeminiTokenParam)
	if err != nil {
		logger.Warn("gemini image key unavailable", "err", err)
	}
	if key == "" {
		return nil
	}
	client, err := gemini.NewClient(ctx, key, gemini.WithImageModel(llm.GeminiImageModel))
	if err != nil {
		logger.Warn("failed to create Gemini image client", "err", err)
		return nil
	}
	return client
}

func (b *builder) auth(ctx context.Context, users auth.UserStore) (*auth.Service, error) {
	secret, err := b.resolve(ctx, b.cfg.Auth.SecretKey, paramstore.JWTSecretParam)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("jwt secret unavailable", "err", err)
	}
	if secret == "" {
		observability.LoggerFromContext(ctx).Warn("SECRET_KEY not set, tokens will not survive a restart")
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
	}
	tokens, err := auth.NewTokenIssuer(secret, b.cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	return auth.NewService(users, tokens, nil)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("app: generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
