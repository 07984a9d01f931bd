package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pcilli/fitbit-mcp-server/internal"
	"github.com/pcilli/fitbit-mcp-server/internal/config"
	"github.com/pcilli/fitbit-mcp-server/internal/logging"
	"github.com/pcilli/fitbit-mcp-server/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "fitbit-backend",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	fitbitClientID := os.Getenv("FITBIT_CLIENT_ID")
	if fitbitClientID == "" {
		log.Errorf("fitbit client id not set, use FITBIT_CLIENT_ID env var to set it")
	}
	fitbitClientSecret := os.Getenv("FITBIT_CLIENT_SECRET")
	if fitbitClientSecret == "" {
		log.Errorf("fitbit client secret not set, use FITBIT_CLIENT_SECRET env var to set it")
	}

	redisPassword := os.Getenv("FITBIT_BACKEND_REDIS_PASS")
	if redisPassword == "" {
		log.Warnf("redis password not set, use FITBIT_BACKEND_REDIS_PASS env var to set it")
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	if cfg.TokenStoreType != "redis" {
		tokensDir := filepath.Dir(cfg.TokensFilePath)
		dirExists, err := pkg.PathExists(tokensDir, true)
		if err != nil {
			log.Fatalf("check tokens dir: %s", err)
		}
		if !dirExists {
			if err := os.MkdirAll(tokensDir, 0o755); err != nil {
				log.Fatalf("create tokens dir %s: %s", tokensDir, err)
			}
			log.Printf("tokens dir created: %s", tokensDir)
		}
	}

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:             cfg,
			FitbitClientID:     fitbitClientID,
			FitbitClientSecret: fitbitClientSecret,
			RedisPassword:      redisPassword,
			VersionInfo:        versionInfo,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
