package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/sequencer"
	"github.com/harrylevesque/forgaile/internal/utils"
)

// clientEnv holds settings read from the environment before flags apply.
type clientEnv struct {
	Server         string `env:"FORGAILE_SERVER"`
	Store          string `env:"FORGAILE_ACK_DRIVER" envDefault:"file"`
	StorePath      string `env:"FORGAILE_ACK_PATH"`
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`
}

// cli carries the flags shared by every command.
type cli struct {
	env       clientEnv
	server    string
	store     string
	storePath string
	logFile   string
	verbose   bool
	scope     string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	if err := env.Parse(&c.env); err != nil {
		fmt.Fprintln(os.Stderr, "parse env:", err)
	}

	root := &cobra.Command{
		Use:   "forgaile",
		Short: "Play the forgaile sequence in a terminal",
		Long: `forgaile plays the gate, the reveal and the word cycle in a terminal window.

Run without arguments to play. The respond action notifies through the server given by
--server (or FORGAILE_SERVER), or directly through Telegram when TELEGRAM_BOT_TOKEN and
TELEGRAM_CHAT_ID are set.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if c.verbose {
				level = "debug"
			}
			var err error
			if cmd.Name() == "play" || cmd.Name() == "forgaile" {
				c.logger, err = utils.NewFileLogger(level, c.logFile)
			} else {
				c.logger, err = utils.NewLogger(level, c.logFile)
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.server, "server", c.env.Server, "forgaile server base URL used to notify")
	root.PersistentFlags().StringVar(&c.store, "store", c.env.Store, "acknowledgement store: file, sqlite or memory")
	root.PersistentFlags().StringVar(&c.storePath, "store-path", c.env.StorePath, "acknowledgement store path (default: user config dir)")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "write logs to this file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.scope, "scope", "", "acknowledgement scope (default: this device)")
	_ = root.PersistentFlags().MarkHidden("scope")

	play := newPlayCmd(c)
	root.RunE = play.RunE
	root.Flags().AddFlagSet(play.Flags())
	root.AddCommand(play, newNotifyCmd(c), newResetCmd(c), newStatusCmd(c))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openAcks opens the local acknowledgement store.
func (c *cli) openAcks() (files.AckStore, error) {
	path := c.storePath
	if path == "" && c.store == "sqlite" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, "forgaile", "acks.db")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return files.Open(c.store, path)
}

func (c *cli) ackKey() string {
	if c.scope != "" {
		return files.Key(c.scope)
	}
	return files.Key(utils.DeviceScope())
}

// notifier prefers the server, then direct Telegram. It returns nil when neither is configured.
func (c *cli) notifier() sequencer.Notifier {
	client := &http.Client{Timeout: 15 * time.Second}
	if c.server != "" {
		return notify.NewRemote(c.server, client)
	}
	cfg := notify.TelegramConfig{Token: c.env.TelegramToken, ChatID: c.env.TelegramChatID}
	if cfg.Configured() {
		return notify.NewTelegram(cfg, client, c.logger)
	}
	return nil
}
