package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nbrandt/espalier"
	"github.com/nbrandt/espalier/pkg/adapters/httpapi"
	"github.com/nbrandt/espalier/pkg/adapters/memory"
	redisadapter "github.com/nbrandt/espalier/pkg/adapters/redis"
	"github.com/nbrandt/espalier/pkg/adapters/skillfile"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
	"github.com/nbrandt/espalier/pkg/session"
	"github.com/nbrandt/espalier/pkg/statetoken"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the statements API, the redirect callback endpoints, the search endpoint and Prometheus metrics over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("skills")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		stateKey, _ := cmd.Flags().GetString("state-key")

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		codec, err := buildCodec(stateKey, logger)
		if err != nil {
			fmt.Printf("Error building state codec: %v\n", err)
			os.Exit(1)
		}

		eng := espalier.New(espalier.WithLogger(logger))
		skills, err := skillfile.LoadDir(dir, eng.Registry())
		if err != nil {
			fmt.Printf("Error loading skills: %v\n", err)
			os.Exit(1)
		}

		provider, turns, err := buildBinderProvider(skills, redisAddr, redisPassword, redisDB, logger)
		if err != nil {
			fmt.Printf("Error building stores: %v\n", err)
			os.Exit(1)
		}

		handler := httpapi.NewServer(eng, provider, codec,
			httpapi.WithLogger(logger),
			httpapi.WithTurnSerializer(turns),
		).Handler()
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Espalier server on %s\n", srv.Addr)
			fmt.Printf("Serving %d skill(s) from: %s\n", len(skills), dir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStarting shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Espalier server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for persistent state (empty keeps state in memory)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis logical database")
	serveCmd.Flags().String("state-key", "", "Hex-encoded 32-byte key for redirect state tokens (empty generates an ephemeral key)")
}

// buildCodec parses the configured key or generates an ephemeral one.
// An ephemeral key invalidates in-flight redirects on restart, which is
// fine for development and wrong for production.
func buildCodec(stateKey string, logger *slog.Logger) (*statetoken.Codec, error) {
	if stateKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		logger.Warn("no state key configured, using an ephemeral key; redirects will not survive a restart")
		return statetoken.NewCodec(key)
	}
	key, err := hex.DecodeString(stateKey)
	if err != nil {
		return nil, fmt.Errorf("state key is not valid hex: %w", err)
	}
	return statetoken.NewCodec(key)
}

// binderProvider hands each request a channel-scoped binder over the
// shared stores. Skills are loaded once at startup.
type binderProvider struct {
	states ports.StateStore
	tokens ports.TokenStore
	skills []*domain.Skill
}

func (p *binderProvider) Binder(_ context.Context, userID, operatorID, channelID string) (ports.Binder, error) {
	bd := memory.NewBinder(userID, operatorID, channelID)
	bd.States = p.states
	bd.Tokens = p.tokens
	for _, skill := range p.skills {
		bd.AddSkill(skill)
	}
	return bd, nil
}

// buildBinderProvider assembles the shared stores plus the session
// manager that serializes turns per channel. With Redis, the manager
// also takes a distributed lock so replicas cannot interleave turns.
func buildBinderProvider(skills []*domain.Skill, redisAddr, redisPassword string, redisDB int, logger *slog.Logger) (*binderProvider, *session.Manager, error) {
	p := &binderProvider{skills: skills}
	if redisAddr == "" {
		p.states = memory.NewStateStore()
		p.tokens = memory.NewTokenStore()
		return p, session.NewManager(p.states, session.WithLogger(logger)), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis unreachable: %w", err)
	}
	p.states = redisadapter.NewFromClient(client)
	p.tokens = redisadapter.NewTokenStore(client, "")
	turns := session.NewManager(p.states,
		session.WithLocker(redisadapter.NewLocker(client, "")),
		session.WithLogger(logger),
	)
	return p, turns, nil
}
