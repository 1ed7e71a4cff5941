// vaultkeeper runs the posthumous-execution engine: the attestation ledger,
// the vault state machine, the instruction scheduler, and the execution
// workers behind one HTTP surface.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"vaultkeeper/internal/analytics"
	analyticshandler "vaultkeeper/internal/analytics/handler"
	"vaultkeeper/internal/audit"
	audithandler "vaultkeeper/internal/audit/handler"
	"vaultkeeper/internal/dispatch"
	"vaultkeeper/internal/events"
	"vaultkeeper/internal/execution"
	httpapi "vaultkeeper/internal/http"
	"vaultkeeper/internal/instruction"
	instructionhandler "vaultkeeper/internal/instruction/handler"
	"vaultkeeper/internal/notification"
	notificationhandler "vaultkeeper/internal/notification/handler"
	"vaultkeeper/internal/party"
	partyhandler "vaultkeeper/internal/party/handler"
	"vaultkeeper/internal/platform/config"
	"vaultkeeper/internal/platform/httpserver"
	"vaultkeeper/internal/platform/logger"
	"vaultkeeper/internal/platform/metrics"
	platformredis "vaultkeeper/internal/platform/redis"
	"vaultkeeper/internal/schedule"
	"vaultkeeper/internal/token"
	"vaultkeeper/internal/vault"
	vaulthandler "vaultkeeper/internal/vault/handler"
	"vaultkeeper/internal/verification"
	verificationhandler "vaultkeeper/internal/verification/handler"
	id "vaultkeeper/pkg/domain"
)

type stores struct {
	vaults        vault.Store
	parties       party.Store
	verifications verification.Ledger
	instructions  instruction.Store
	execution     execution.InstructionStore
	notifications notification.Store
	audits        audit.Store
	counter       verification.VerifiedPartyCounter
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var st stores
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("database open failed", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		vaultStore := vault.NewPostgresStore(db)
		partyStore := party.NewPostgresStore(db)
		verificationStore := verification.NewPostgresStore(db)
		instructionStore := instruction.NewPostgresStore(db)
		st = stores{
			vaults:        vaultStore,
			parties:       partyStore,
			verifications: verificationStore,
			instructions:  instructionStore,
			execution:     instructionStore,
			notifications: notification.NewPostgresStore(db),
			audits:        audit.NewPostgresStore(db),
			counter:       verificationStore,
		}
		log.Info("using postgres stores")
	} else {
		vaultStore := vault.NewInMemoryStore()
		partyStore := party.NewInMemoryStore()
		verificationStore := verification.NewInMemoryStore()
		instructionStore := instruction.NewInMemoryStore()
		st = stores{
			vaults:        vaultStore,
			parties:       partyStore,
			verifications: verificationStore,
			instructions:  instructionStore,
			execution:     instructionStore,
			notifications: notification.NewInMemoryStore(),
			audits:        audit.NewInMemoryStore(),
			counter:       verificationStore,
		}
		log.Info("using in-memory stores")
	}

	var claims execution.ClaimStore = execution.NewInMemoryClaims()
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		claims = execution.NewRedisClaims(rdb.Client)
		log.Info("using redis claim store")
	}

	publisher, err := events.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Error("kafka connect failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	m := metrics.New()
	auditor := audit.NewPublisher(0)

	notificationSvc := notification.NewService(st.notifications, st.vaults,
		notification.WithLogger(log))
	auditWorker := audit.NewWorker(st.audits, auditor.Inbox(), log, notificationSvc)

	scheduler := schedule.NewScheduler(st.instructions,
		schedule.WithLogger(log),
		schedule.WithMetrics(m),
	)

	vaultOpts := []vault.Option{
		vault.WithLogger(log),
		vault.WithMetrics(m),
		vault.WithAuditPublisher(auditor),
		vault.WithDefaultThreshold(cfg.QuorumThreshold),
	}
	if publisher != nil {
		vaultOpts = append(vaultOpts, vault.WithEventPublisher(publisher))
	}
	vaultSvc := vault.NewService(st.vaults, verification.NewQuorum(st.counter), scheduler, vaultOpts...)

	verificationSvc := verification.NewService(st.verifications, st.parties, vaultSvc,
		verification.WithLogger(log),
		verification.WithMetrics(m),
		verification.WithAuditPublisher(auditor),
	)
	partySvc := party.NewService(st.parties, st.vaults, party.WithLogger(log))
	instructionSvc := instruction.NewService(st.instructions, vaultSvc, instruction.WithLogger(log))
	analyticsSvc := analytics.NewService(st.vaults, st.parties, st.instructions, st.verifications)

	workerOpts := []execution.Option{
		execution.WithLogger(log),
		execution.WithMetrics(m),
		execution.WithAuditPublisher(auditor),
		execution.WithIntervals(cfg.ScanInterval, cfg.DispatchTimeout, cfg.ClaimTTL, cfg.RetryBackoff),
	}
	if publisher != nil {
		workerOpts = append(workerOpts, execution.WithEventPublisher(publisher))
	}
	worker := execution.NewWorker(scheduler, st.execution, st.vaults, claims,
		dispatch.NewLogRouter(log), workerOpts...)

	// Vaults that unlocked before this process started still owe executions.
	if err := scheduler.Restore(ctx, unlockedVaults{store: st.vaults}); err != nil {
		log.Error("scheduler restore failed", "error", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:    log,
		Validator: token.NewValidator(cfg.JWTSigningKey),
		Handlers: []httpapi.Registrar{
			vaulthandler.New(vaultSvc, log),
			partyhandler.New(partySvc, log),
			verificationhandler.New(verificationSvc, vaultSvc, log),
			instructionhandler.New(instructionSvc, log),
			notificationhandler.New(notificationSvc, log),
			analyticshandler.New(analyticsSvc, log),
			audithandler.New(st.audits, log),
		},
		Health: func() error {
			if db != nil {
				if err := db.Ping(); err != nil {
					return err
				}
			}
			if rdb != nil {
				return rdb.Health(context.Background())
			}
			return nil
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})
	g.Go(func() error {
		return worker.RunPool(ctx, cfg.WorkerCount)
	})
	g.Go(func() error {
		log.Info("starting vaultkeeper", "addr", cfg.Addr, "workers", cfg.WorkerCount)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("vaultkeeper stopped")
}

// unlockedVaults adapts the vault store to the scheduler's restore input.
type unlockedVaults struct {
	store vault.Store
}

func (u unlockedVaults) ListUnlockedAt(ctx context.Context) (map[id.VaultID]time.Time, error) {
	vaults, err := u.store.ListUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[id.VaultID]time.Time, len(vaults))
	for _, v := range vaults {
		if v.UnlockedAt != nil {
			out[v.ID] = *v.UnlockedAt
		}
	}
	return out, nil
}
