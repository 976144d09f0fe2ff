package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/config"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/repositories/products"
	"github.com/dmitrijs2005/dealerclient/internal/client/services"
	"github.com/dmitrijs2005/dealerclient/internal/filex"
	"github.com/dmitrijs2005/dealerclient/internal/logging"

	_ "modernc.org/sqlite"
)

// productCacheMaxAge bounds how long cached display info is trusted.
const productCacheMaxAge = 24 * time.Hour

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	store  *credentials.DBStore

	authService     services.AuthService
	catalogService  services.CatalogService
	cartService     services.CartService
	orderService    services.OrderService
	warrantyService services.WarrantyService

	mu          sync.Mutex
	displayName string
	accountID   int64

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database and wires the API client and services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	app := &App{
		config: c,
		log:    log,
		db:     db,
		store:  credentials.NewDBStore(db, []byte(c.SessionPassphrase)),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	api, err := client.New(client.Options{
		BaseURL:           c.ServerBaseURL,
		Timeout:           c.RequestTimeout,
		MaxAttempts:       c.MaxAttempts,
		RetryBaseDelay:    c.RetryBaseDelay,
		RequestsPerSecond: c.RequestsPerSecond,
		RefreshSkew:       c.RefreshSkew,
		Store:             app.store,
		Logger:            log,
		OnSessionExpired:  app.onSessionExpired,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache := products.NewSQLiteRepository(db, productCacheMaxAge)
	app.authService = services.NewAuthService(api, app.store, cache, log)
	app.catalogService = services.NewCatalogService(api, cache, log)
	app.cartService = services.NewCartService(api, app.store, app.catalogService, services.DefaultSyncTimeout, log)
	app.orderService = services.NewOrderService(api, app.store, app.cartService, log)
	app.warrantyService = services.NewWarrantyService(api, app.store, log)
	return app, nil
}

// Run restores a saved session if there is one and starts the REPL. It
// blocks until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.println("Dealer storefront CLI (gõ 'help' để xem các lệnh)")
	a.restoreSession(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close waits for background cart syncs and closes the database.
func (a *App) Close() {
	if a.cartService != nil {
		a.cartService.Wait()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) restoreSession(ctx context.Context) {
	session, err := a.authService.Current(ctx)
	if err != nil {
		a.log.Warn(ctx, "failed to load saved session", "error", err)
		return
	}
	if session == nil {
		if name, err := a.store.LastUsername(ctx); err == nil && name != "" {
			a.println("Lần trước đăng nhập với tên:", name)
		}
		return
	}

	a.setSession(session.AccountID, session.DisplayName)
	a.println("Đã khôi phục phiên của", session.DisplayName)
	if _, err := a.cartService.Refresh(ctx); err != nil {
		a.report(err)
	}
}

// setSession may race with onSessionExpired, which runs on whatever
// goroutine hit the failed refresh.
func (a *App) setSession(accountID int64, displayName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accountID = accountID
	a.displayName = displayName
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accountID != 0
}

func (a *App) getStatus() string {
	a.mu.Lock()
	name, loggedIn := a.displayName, a.accountID != 0
	a.mu.Unlock()
	if !loggedIn {
		return "(khách)"
	}
	return fmt.Sprintf("(%s, giỏ: %d)", name, a.cartService.CartCount())
}

// onSessionExpired runs when a token refresh fails and the session is gone.
func (a *App) onSessionExpired(context.Context) {
	a.setSession(0, "")
	if a.cartService != nil {
		a.cartService.Reset()
	}
	a.println("Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại.")
}

// pendingErrors drains the failures of background cart updates.
func (a *App) pendingErrors() []error {
	if a.cartService == nil {
		return nil
	}
	return a.cartService.PendingErrors()
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// report prints the dealer-facing text for err.
func (a *App) report(err error) {
	a.println(client.UserMessage(err))
}
