package cmd

import (
	"context"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/logger"
	"github.com/staffkit/staff-matcher/internal/secrets"
	"github.com/staffkit/staff-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the matcher session over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", ":8080", "address to listen on")
	serveCmd.Flags().StringP("data", "f", "", "process table CSV to load. Overrides the config value.")
	serveCmd.Flags().String("token-file", "", "file with the bearer token protecting the API. Default is unset (no auth).")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("data", serveCmd.Flags().Lookup("data"))
	viper.BindPFlag("token-file", serveCmd.Flags().Lookup("token-file"))
}

func serve(_ *cobra.Command) {
	ctx := context.Background()

	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	zlog, err := logger.NewWithFile(viper.GetBool("json"), viper.GetBool("debug"), config.LogFile)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	zlog.Info("starting the staff-matcher api", zap.String("version", version))

	sess, closeStore, err := newSession(ctx, config, zlog)
	if err != nil {
		zlog.Fatal("creating a session", zap.Error(err))
	}
	defer closeStore()

	dataPath := strings.TrimSpace(viper.GetString("data"))
	if dataPath == "" {
		dataPath = strings.TrimSpace(config.Data)
	}

	if dataPath != "" {
		if err := sess.Load(dataPath); err != nil {
			zlog.Fatal("loading process table", zap.Error(err))
		}
	} else if restored, err := sess.Restore(); err != nil {
		zlog.Fatal("restoring process table", zap.Error(err))
	} else if restored {
		zlog.Info("restored process table from database", zap.Int("processes", sess.Table().Len()))
	} else {
		zlog.Warn("no process table loaded",
			zap.String("hint", "endpoints return 409 until a table is loaded via --data or a prior session"),
		)
	}

	token := resolveAPIToken(config, zlog)

	advisor, err := newAdvisor(ctx, config.AI, zlog)
	if err != nil {
		zlog.Warn("skipping ai advisor", zap.Error(err))
	}

	router := server.NewRouter(sess, zlog, token, advisor)
	srv := server.NewServer(viper.GetString("listen"), router)

	zlog.Info("listening", zap.String("addr", srv.Addr), zap.Bool("auth", token != ""))

	if err := srv.ListenAndServe(); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func resolveAPIToken(config *Config, zlog *zap.Logger) string {
	tokenFile := strings.TrimSpace(viper.GetString("token-file"))
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(config.TokenFile)
	}

	if tokenFile == "" {
		return ""
	}

	token, err := secrets.Load(secrets.Source{
		Name: "api token",
		File: tokenFile,
	})
	if err != nil {
		zlog.Fatal("loading api token",
			zap.Error(err),
			zap.String("hint", "set STAFF_MATCHER_TOKEN_FILE or the 'token-file' key in the configuration file"),
		)
	}

	return token
}
