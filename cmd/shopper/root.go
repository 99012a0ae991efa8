package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"storefront/internal/client/address"
	"storefront/internal/client/backend/live"
	"storefront/internal/client/backend/rest"
	"storefront/internal/client/collection"
	"storefront/internal/client/otp"
	"storefront/internal/client/remote"
	"storefront/internal/client/session"
	"storefront/internal/client/storage"
	"storefront/internal/config"
	"storefront/internal/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shopper holds everything a command needs. It is built once per invocation.
type shopper struct {
	cfg     config.ClientConfig
	logger  *zap.Logger
	vault   *storage.Vault
	client  *remote.Client
	session *session.Store
	feed    *live.Feed
	in      *bufio.Reader
	closers []func()
}

var rt *shopper

func newRootCmd() *cobra.Command {
	cfg := config.LoadClient()
	var redisAddr string

	root := &cobra.Command{
		Use:   "shopper",
		Short: "Storefront client",
		Long: `shopper drives a storefront account from the terminal.

Sessions survive between runs when a state path or redis address is given.

Example usage:
  shopper login --email me@example.com
  shopper cart add shoe-42 --price 212 --qty 2
  shopper orders place --address <id>
  shopper cart watch --live`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("api") && !cmd.Flags().Changed("ws") {
				cfg.WSURL = config.WebsocketURL(cfg.APIURL)
			}
			s, err := build(cmd.Context(), cfg, redisAddr)
			if err != nil {
				return err
			}
			s.in = bufio.NewReader(cmd.InOrStdin())
			rt = s
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.APIURL, "api", cfg.APIURL, "storefront API base URL")
	flags.StringVar(&cfg.WSURL, "ws", cfg.WSURL, "realtime endpoint (default: derived from --api)")
	flags.StringVar(&cfg.StatePath, "state", cfg.StatePath, "SQLite file holding the session between runs")
	flags.StringVar(&redisAddr, "redis", "", "keep the session in redis (host:port or redis:// URL) instead of a local file")
	flags.BoolVar(&cfg.Live, "live", cfg.Live, "follow collections over the realtime feed")
	flags.BoolVarP(&cfg.Debug, "verbose", "v", cfg.Debug, "log requests")

	root.AddCommand(
		newLoginCmd(), newSignupCmd(), newLogoutCmd(), newForgotCmd(),
		newWhoamiCmd(), newProfileCmd(), newVerifyMobileCmd(),
		newCartCmd(), newWishlistCmd(), newOrdersCmd(), newAddressesCmd(),
	)
	return root
}

// execute runs root and releases whatever the command built, even when it failed.
func execute(ctx context.Context, root *cobra.Command) error {
	defer func() {
		if rt != nil {
			rt.close()
			rt = nil
		}
	}()
	return root.ExecuteContext(ctx)
}

func build(ctx context.Context, cfg config.ClientConfig, redisAddr string) (*shopper, error) {
	if cfg.WSURL == "" {
		cfg.WSURL = config.WebsocketURL(cfg.APIURL)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	s := &shopper{cfg: cfg, logger: logger}

	store, err := s.openStore(ctx, redisAddr)
	if err != nil {
		s.close()
		return nil, err
	}

	s.vault = storage.NewVault(store, logger)
	s.client = remote.New(remote.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout, Debug: cfg.Debug}, s.vault, logger)
	s.session = session.NewStore(s.client, s.vault, otp.NewFlow(otp.WithResendCooldown(cfg.OTPResendCooldown)), logger)
	s.closers = append(s.closers, s.session.Close)
	s.feed = live.NewFeed(cfg.WSURL, s.vault, logger)

	if err := s.session.ResumeSession(ctx); err != nil {
		logger.Warn("could not resume session", zap.Error(err))
	}
	return s, nil
}

func (s *shopper) openStore(ctx context.Context, redisAddr string) (storage.Store, error) {
	switch {
	case redisAddr != "":
		client, err := db.NewRedisClient(ctx, db.RedisConfig{Addr: redisAddr, PoolSize: 2})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { client.Close() })
		return storage.NewRedisStore(client, "shopper:"), nil
	case s.cfg.StatePath != "":
		file, err := storage.OpenSQLite(ctx, s.cfg.StatePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() { file.Close() })
		return file, nil
	default:
		s.logger.Debug("no state path configured, session ends with this run")
		return storage.NewMemoryStore(), nil
	}
}

// close releases resources in reverse order of acquisition.
func (s *shopper) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	_ = s.logger.Sync()
}

func (s *shopper) cart() *collection.Cart {
	api := rest.NewCartAPI(s.client)
	if s.cfg.Live {
		return collection.NewCart(s.session, live.NewCart(api, s.feed), s.logger)
	}
	return collection.NewCart(s.session, api, s.logger)
}

func (s *shopper) wishlist() *collection.Wishlist {
	api := rest.NewWishlistAPI(s.client)
	if s.cfg.Live {
		return collection.NewWishlist(s.session, live.NewWishlist(api, s.feed), s.logger)
	}
	return collection.NewWishlist(s.session, api, s.logger)
}

func (s *shopper) orders() *collection.Orders {
	api := rest.NewOrdersAPI(s.client)
	if s.cfg.Live {
		return collection.NewOrders(s.session, live.NewOrders(api, s.feed), s.logger)
	}
	return collection.NewOrders(s.session, api, s.logger)
}

func (s *shopper) addresses() *address.Service {
	return address.NewService(s.client)
}

// prompt reads one trimmed line from stdin.
func (s *shopper) prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, err := s.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return line, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
