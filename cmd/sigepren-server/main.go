package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sigepren/sigepren/internal/config"
	"github.com/sigepren/sigepren/internal/domain/usuario"
	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigepren-server",
		Short: "SIGEPREN prenatal clinical history API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexesCmd())
	rootCmd.AddCommand(usuariosCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			skipIndexes, _ := cmd.Flags().GetBool("skip-indexes")
			return runServer(skipIndexes)
		},
	}
	cmd.Flags().Bool("skip-indexes", false, "Do not ensure indexes on startup")
	return cmd
}

func indexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Manage MongoDB indexes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create every index the repositories rely on",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Getenv("ENV"))
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			client, database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer disconnect(client, logger)

			specs := indexSpecs()
			if err := db.EnsureIndexes(ctx, database, logger, specs...); err != nil {
				return err
			}
			fmt.Printf("%d indexes ensured on %s\n", len(specs), database.Name())
			return nil
		},
	})
	return cmd
}

func usuariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usuarios",
		Short: "Manage usuarios",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a usuario, typically the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Getenv("ENV"))
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			payload := map[string]any{}
			for _, flag := range []string{"nombre", "apellido", "correo", "telefono", "username", "password", "rol"} {
				value, _ := cmd.Flags().GetString(flag)
				if value != "" || cmd.Flags().Changed(flag) {
					payload[flag] = value
				}
			}

			ctx := context.Background()
			client, database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			defer disconnect(client, logger)

			if err := db.EnsureIndexes(ctx, database, logger, usuario.Indexes()...); err != nil {
				return err
			}
			svc := usuario.NewService(usuario.NewMongoRepo(database), usuario.TokenConfig{
				SigningKey: []byte(cfg.JWTSecretKey),
				TTL:        cfg.JWTTTL,
			}, logger)
			u, err := svc.Crear(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Printf("usuario %s created (id=%s, rol=%s)\n", u.Username, u.ID.Hex(), u.Rol)
			return nil
		},
	}
	createCmd.Flags().String("nombre", "", "Nombre")
	createCmd.Flags().String("apellido", "", "Apellido")
	createCmd.Flags().String("correo", "", "Correo electrónico")
	createCmd.Flags().String("telefono", "", "Teléfono")
	createCmd.Flags().String("username", "", "Username used to log in")
	createCmd.Flags().String("password", "", "Password")
	createCmd.Flags().String("rol", auth.RoleAdmin, "Rol (admin, medico, enfermeria, recepcion)")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("password")

	cmd.AddCommand(createCmd)
	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func disconnect(client *mongo.Client, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warn().Err(err).Msg("mongo disconnect failed")
	}
}

func runServer(skipIndexes bool) error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	client, database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer disconnect(client, logger)
	logger.Info().Str("database", database.Name()).Msg("connected to database")

	tx, err := db.NewTransactor(ctx, client, cfg.MongoTxMode, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to probe transaction support")
	}

	if !skipIndexes {
		if err := db.EnsureIndexes(ctx, database, logger, indexSpecs()...); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure indexes")
		}
	}

	app := wire(ctx, cfg, logger, database, tx)
	defer app.Close()

	e := newServer(cfg, logger, serverDeps{
		Pinger:   client,
		Tx:       tx,
		Audit:    app.audit,
		Handlers: app.handlers,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("atomic_tx", tx.Atomic()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
