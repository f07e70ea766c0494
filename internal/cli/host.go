package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"exam-arena/internal/app"
	"exam-arena/internal/config"
	"exam-arena/internal/domain"
	"exam-arena/internal/gen"
	"exam-arena/internal/infra/memory"
	pgstore "exam-arena/internal/infra/postgres"
	redisstore "exam-arena/internal/infra/redis"
	"exam-arena/internal/logger"
	"exam-arena/internal/parser"
	"exam-arena/internal/session"
	"exam-arena/internal/transport/ws"
)

// NewHostCmd builds the subcommand hosting a teacher session.
func NewHostCmd(configPath *string) *cobra.Command {
	var importPath string
	var activateID string
	var generateTopic string
	var generateCount int

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a live exam room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), *configPath, importPath, activateID, generateTopic, generateCount)
		},
	}
	cmd.Flags().StringVar(&importPath, "import", "", "exam text file to import on startup")
	cmd.Flags().StringVar(&activateID, "activate", "", "exam ID to activate, or 'imported' for the exam just imported or generated")
	cmd.Flags().StringVar(&generateTopic, "generate", "", "topic to generate an exam for via the configured generator")
	cmd.Flags().IntVar(&generateCount, "generate-count", gen.DefaultCount, "number of questions to generate")
	return cmd
}

func runHost(ctx context.Context, configPath, importPath, activateID, generateTopic string, generateCount int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(cfg.Teams) > 0 {
		if err := store.SaveTeams(cfg.Teams); err != nil {
			return err
		}
	}

	if importPath != "" {
		imported, err := importExam(rnd, store, importPath)
		if err != nil {
			return err
		}
		log.Info().Str("exam", imported.ID).Str("title", imported.Title).Msg("imported exam")
		if activateID == "imported" {
			activateID = imported.ID
		}
	}

	if generateTopic != "" {
		generated, err := generateExam(ctx, cfg, rnd, store, generateTopic, generateCount)
		if err != nil {
			return err
		}
		log.Info().Str("exam", generated.ID).Str("topic", generateTopic).Msg("generated exam")
		if activateID == "imported" {
			activateID = generated.ID
		}
	}

	host, err := ws.StartHost(ws.HostConfig{
		BrokerURL:  wsScheme(cfg.Broker.URL),
		ListenAddr: cfg.Host.ListenAddr,
		PublicURL:  cfg.Host.PublicURL,
	}, rnd, log)
	if err != nil {
		return err
	}

	scoreboard := app.NewScoreboard(store, log)
	if saved, err := store.LiveScores(); err == nil && len(saved) > 0 {
		scoreboard.Restore(saved)
	}

	// Student joins read the exam list for the welcome snapshot; a short
	// TTL cache keeps a join burst from turning into a store round trip
	// per student.
	examSource := memory.NewExamListCache(store.Exams, config.TTLDuration(cfg.Exam.CacheTTL, 30*time.Second))

	teacher := session.NewTeacher(host, store, scoreboard, examSource, log)
	lifecycle := app.NewLifecycle(store, scoreboard, teacher, log)
	teacher.Start()

	if activateID != "" {
		if _, err := lifecycle.Activate(activateID); err != nil {
			teacher.Teardown()
			return err
		}
		examSource.Invalidate()
	}

	log.Info().Str("room", teacher.Code()).Msg("room open, waiting for students")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("closing room")
	case <-ctx.Done():
		log.Info().Msg("context canceled, closing room")
	}

	teacher.Teardown()
	return nil
}

// openStore picks the storage backend: postgres when configured, then
// redis, then in-memory. Postgres runs pending migrations first.
func openStore(ctx context.Context, cfg config.Config) (app.Store, func(), error) {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(pool), pool.Close, nil
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisstore.NewStore(client), func() { _ = client.Close() }, nil
	}
	return memory.NewStore(), func() {}, nil
}

func importExam(rnd *rand.Rand, store app.Store, path string) (domain.Exam, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Exam{}, err
	}
	questions := parser.ParseExamFile(string(content))
	exam, err := app.NewExam(rnd, titleFromPath(path), "", questions)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("importing %s: %w", path, err)
	}
	if err := store.SaveExam(exam); err != nil {
		return domain.Exam{}, err
	}
	return exam, nil
}

func generateExam(ctx context.Context, cfg config.Config, rnd *rand.Rand, store app.Store, topic string, count int) (domain.Exam, error) {
	if cfg.Generator.URL == "" {
		return domain.Exam{}, fmt.Errorf("generator url not configured")
	}
	g := &gen.HTTPGenerator{URL: cfg.Generator.URL, APIKey: cfg.Generator.APIKey}
	questions, err := g.GenerateQuestions(ctx, topic, count)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("generating %q: %w", topic, err)
	}
	exam, err := app.NewExam(rnd, topic, "", questions)
	if err != nil {
		return domain.Exam{}, err
	}
	if err := store.SaveExam(exam); err != nil {
		return domain.Exam{}, err
	}
	return exam, nil
}

func titleFromPath(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".txt")
}

// wsScheme rewrites an http(s) broker URL to its websocket equivalent.
func wsScheme(url string) string {
	if strings.HasPrefix(url, "http") {
		return "ws" + strings.TrimPrefix(url, "http")
	}
	return url
}
