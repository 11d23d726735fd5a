package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadflow/internal/archive"
	"github.com/wolfman30/leadflow/internal/compliance"
	appconfig "github.com/wolfman30/leadflow/internal/config"
	"github.com/wolfman30/leadflow/internal/conversation"
	"github.com/wolfman30/leadflow/internal/events"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/notify"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

const (
	LeadStoreMemory    = "memory"
	LeadStorePostgres  = "postgres"
	LeadStoreDynamo    = "dynamo"
	LeadStoreFirestore = "firestore"
)

// Deps are the process-level clients an Engine is built from. Every field
// is optional.
type Deps struct {
	AWS        aws.Config
	Registerer prometheus.Registerer
	Redis      *redis.Client
	AuditDB    *sql.DB
}

// Engine is the wired conversation engine shared by every entry point.
type Engine struct {
	Service *conversation.Service
	Leads   leads.Repository
	Metrics *metrics.ConversationMetrics
	Audit   *compliance.AuditService
	Hooks   []conversation.Hook

	closers []func() error
}

// Close releases provider and storage clients opened by BuildEngine.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildEngine wires the resolver chain, orchestrator and service from config.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	engine := &Engine{Metrics: metrics.NewConversationMetrics(deps.Registerer)}

	repo, repoCloser, err := BuildLeadRepository(ctx, cfg, deps.AWS)
	if err != nil {
		return nil, err
	}
	engine.Leads = repo
	if repoCloser != nil {
		engine.closers = append(engine.closers, repoCloser)
	}

	client, model, llmClosers, err := BuildLLMClient(ctx, cfg, deps.AWS, logger)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	engine.closers = append(engine.closers, llmClosers...)

	if deps.AuditDB != nil {
		engine.Audit = compliance.NewAuditService(deps.AuditDB)
	}
	engine.Hooks = BuildHooks(cfg, deps.AWS, engine.Audit, logger)

	var chain conversation.Chain
	if client != nil {
		chain = append(chain, conversation.NewLLMResolver(client,
			conversation.WithModel(model),
			conversation.WithLLMTimeout(cfg.LLMTimeout),
			conversation.WithLLMLogger(logger),
			conversation.WithLLMMetrics(engine.Metrics),
		))
	}
	chain = append(chain, conversation.NewRuleResolver(cfg.SchedulingURL, cfg.CaseStudiesPath))

	orch := conversation.NewOrchestrator(
		conversation.OrchestratorConfig{
			MaxMessages:     cfg.MaxSessionMessages,
			SchedulingURL:   cfg.SchedulingURL,
			CaseStudiesPath: cfg.CaseStudiesPath,
			FallbackContact: cfg.FallbackContactInfo,
		},
		chain,
		repo,
		conversation.WithModerator(conversation.NewModerator(cfg.BlockedTerms...)),
		conversation.WithHooks(engine.Hooks...),
		conversation.WithLogger(logger),
		conversation.WithMetrics(engine.Metrics),
	)
	engine.Service = conversation.NewService(BuildSessionStore(deps.Redis, cfg.SessionTTL), orch, cfg.LeadSourceTag, logger)

	logger.Info("conversation engine ready",
		"lead_store", cfg.LeadStore,
		"llm", model != "",
		"hooks", len(engine.Hooks),
		"redis_sessions", deps.Redis != nil,
	)
	return engine, nil
}

// BuildLeadRepository selects the lead store named by LEAD_STORE.
func BuildLeadRepository(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config) (leads.Repository, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LeadStore)) {
	case "", LeadStoreMemory:
		return leads.NewInMemoryRepository(), nil, nil
	case LeadStorePostgres:
		pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return leads.NewPostgresRepository(pool), func() error { pool.Close(); return nil }, nil
	case LeadStoreDynamo:
		return leads.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), cfg.LeadsTable), nil, nil
	case LeadStoreFirestore:
		if strings.TrimSpace(cfg.FirestoreProjectID) == "" {
			return nil, nil, fmt.Errorf("bootstrap: FIRESTORE_PROJECT_ID is required for the firestore lead store")
		}
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: firestore client: %w", err)
		}
		return leads.NewFirestoreRepository(client, cfg.FirestoreLeads), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown lead store %q", cfg.LeadStore)
	}
}

// BuildHooks returns the completion hooks enabled by config, in the order
// they run.
func BuildHooks(cfg *appconfig.Config, awsCfg aws.Config, audit *compliance.AuditService, logger *logging.Logger) []conversation.Hook {
	var hooks []conversation.Hook
	if audit != nil {
		hooks = append(hooks, compliance.NewAuditHook(audit))
	}
	if cfg.NotifyEmailTo != "" {
		hooks = append(hooks, notify.NewLeadNotifier(buildMailer(cfg, awsCfg, logger), cfg.NotifyEmailTo, logger))
	}
	if cfg.LeadEventsQueueURL != "" {
		publisher := events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.LeadEventsQueueURL)
		hooks = append(hooks, events.NewLeadEventHook(publisher))
	}
	if cfg.TranscriptBucket != "" {
		store := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.TranscriptBucket, logger)
		hooks = append(hooks, archive.NewTranscriptHook(store))
	}
	return hooks
}

func buildMailer(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.Mailer {
	mailerCfg := notify.MailerConfig{
		Provider:       cfg.EmailProvider,
		FromAddress:    cfg.EmailFromAddress,
		FromName:       cfg.EmailFromName,
		SendGridAPIKey: cfg.SendGridAPIKey,
	}
	if mailerCfg.Provider == notify.ProviderSES {
		return notify.NewMailer(mailerCfg, sesv2.NewFromConfig(awsCfg), logger)
	}
	return notify.NewMailer(mailerCfg, nil, logger)
}
