package cli

import (
	"context"

	"github.com/dmitrijs2005/dealerclient/internal/shared"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials, authenticates and loads the cart of the
// new session. The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Tên đăng nhập", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	session, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		return err
	}
	a.setSession(session.AccountID, session.DisplayName)
	a.println("Đăng nhập thành công. Xin chào,", session.DisplayName)

	a.cartService.Reset()
	if _, err := a.cartService.Refresh(ctx); err != nil {
		a.report(err)
	}
	return nil
}

// Logout waits for pending cart updates, then drops the session and the
// local caches.
func (a *App) Logout(ctx context.Context) error {
	a.cartService.Wait()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	if err := a.catalogService.Forget(ctx); err != nil {
		a.log.Warn(ctx, "failed to forget catalog cache", "error", err)
	}
	a.cartService.Reset()
	a.setSession(0, "")
	a.println("Đã đăng xuất.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	session, err := a.authService.Current(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		a.println("Chưa đăng nhập.")
		return nil
	}
	a.printf("%s (mã đại lý %d)\n", session.DisplayName, session.AccountID)
	if len(session.Roles) > 0 {
		a.println("Quyền:", session.Roles)
	}
	return nil
}
