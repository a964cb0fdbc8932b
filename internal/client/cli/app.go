package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/keybox/internal/client/activity"
	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/client/cloudsync"
	"github.com/dmitrijs2005/keybox/internal/client/config"
	"github.com/dmitrijs2005/keybox/internal/client/keys"
	"github.com/dmitrijs2005/keybox/internal/client/localdb"
	"github.com/dmitrijs2005/keybox/internal/client/remote"
	"github.com/dmitrijs2005/keybox/internal/client/services"
	"github.com/dmitrijs2005/keybox/internal/client/store"
	"github.com/dmitrijs2005/keybox/internal/client/trash"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/cryptox"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/otp"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

// Test seams.
var (
	openTransport = remote.Open
	clock         = timex.SystemClock()
)

// App is one opened vault: local database, services and the sync engine.
type App struct {
	config    *config.Config
	db        *localdb.Repositories
	vault     *services.Vault
	engine    *cloudsync.Engine
	transport remote.Transport
	pin       *authz.PINAuthorizer
	gen       *otp.Generator
	logger    logging.Logger

	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// NewApp opens the vault under c.DataDir. in and out are used for prompts.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, errOut io.Writer) (*App, error) {
	a := &App{
		config: c,
		reader: bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		logger: logging.NewTextLogger(errOut, c.LogLevel).With("app", "keybox"),
		gen:    otp.NewGenerator(clock),
	}

	src, err := keys.ParseSource(c.KeySource)
	if err != nil {
		return nil, err
	}
	mode := authz.Mode(c.AuthMode)
	if mode != "" && mode != authz.ModeNone && mode != authz.ModePIN {
		return nil, fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	kind, err := remote.ParseKind(c.Transport)
	if err != nil {
		return nil, err
	}

	db, err := localdb.Open(ctx, c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	a.db = db

	key, err := keys.Resolve(ctx, src, db.Metadata, func() ([]byte, error) {
		return GetHidden(a.reader, "Vault passphrase", a.out)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cipher, err := cryptox.NewService(key)
	cryptox.Wipe(key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var auth authz.Authorizer = authz.AllowAll{}
	if mode == authz.ModePIN {
		a.pin = authz.NewPINAuthorizer(db.Metadata, a.askPIN, a.logger)
		auth = a.pin
	}

	tokens := store.New[models.Secret](common.TokensKey, db.Blobs, cipher, a.logger)
	accounts := store.New[models.VaultEntry](common.AccountsKey, db.Blobs, cipher, a.logger)
	tokenTrash := trash.NewLedger(
		store.New[models.TrashEntry[models.Secret]](common.TrashTokensKey, db.Blobs, cipher, a.logger),
		clock, c.TrashLimit)
	accountTrash := trash.NewLedger(
		store.New[models.TrashEntry[models.VaultEntry]](common.TrashAccountsKey, db.Blobs, cipher, a.logger),
		clock, c.TrashLimit)
	events := activity.NewLog(store.New[models.ActivityEvent](common.ActivityKey, db.Blobs, cipher, a.logger), clock)

	tokenSvc := services.NewTokenService(tokens, tokenTrash, events, auth, a.gen, a.logger)
	accountSvc := services.NewAccountService(accounts, accountTrash, events, auth, clock, a.logger)
	activitySvc := services.NewActivityService(events, tokenSvc, accountSvc)
	a.vault = services.NewVault(tokenSvc, accountSvc, activitySvc, auth)

	t, err := openTransport(ctx, remote.Options{
		Kind:         kind,
		Address:      c.ServerAddr,
		AccessToken:  c.AccessToken,
		S3:           c.S3,
		PollInterval: c.PollInterval,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s transport: %w", kind, err)
	}
	a.transport = t

	a.engine = cloudsync.NewEngine(t, db.Metadata, a.logger, clock,
		[]cloudsync.Collection{tokens, accounts},
		cloudsync.WithRetryInterval(c.PollInterval))
	a.engine.OnMerged(func(ctx context.Context, key string, added int) {
		if err := activitySvc.Record(ctx, models.EventSync, "Cloud Sync", "Data synchronized from cloud"); err != nil {
			a.logger.Warn(ctx, "failed to record sync event", "error", err)
		}
	})
	tokens.SetNotifier(a.engine)
	accounts.SetNotifier(a.engine)

	if err := a.engine.Start(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) askPIN(reason string) ([]byte, error) {
	return GetHidden(a.reader, "PIN to "+reason, a.out)
}

// syncConfigured reports whether a cloud transport is set up.
func (a *App) syncConfigured() error {
	if _, ok := a.transport.(remote.Offline); ok {
		return fmt.Errorf("%w: set --transport or \"transport\" in the config file", remote.ErrNotConfigured)
	}
	return nil
}

// Close lets pending uploads finish, then releases the transport and the
// database.
func (a *App) Close() error {
	var errs []error
	if a.engine != nil {
		a.engine.Wait()
		errs = append(errs, a.engine.Close())
	}
	if a.transport != nil {
		errs = append(errs, a.transport.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
