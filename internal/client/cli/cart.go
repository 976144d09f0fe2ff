package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/client/services"
)

func (a *App) Cart(ctx context.Context) error {
	lines, err := a.cartService.Refresh(ctx)
	if err != nil {
		return err
	}
	a.printCart(lines)
	return nil
}

func (a *App) printCart(lines []models.CartLine) {
	if len(lines) == 0 {
		a.println("Giỏ hàng trống.")
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Mã\tSản phẩm\tSL\tĐơn giá\tThành tiền")
	for _, l := range lines {
		id := fmt.Sprint(l.CartID)
		if l.IsLocal() {
			id += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", id, lineName(l), l.Quantity, formatVND(l.UnitPrice), formatVND(l.UnitPrice*float64(l.Quantity)))
	}
	_ = tw.Flush()

	a.printf("Tổng cộng: %s (%d sản phẩm)\n", formatVND(models.TotalAmount(lines)), models.ItemCount(lines))
}

func lineName(l models.CartLine) string {
	if l.ProductName != "" {
		return l.ProductName
	}
	return fmt.Sprintf("Sản phẩm #%d", l.ProductID)
}

// Add adds a product at its dealer price. When the server cannot be reached
// the line is kept locally and marked with '*'.
func (a *App) Add(ctx context.Context, args []string) error {
	const usage = "add <mã sản phẩm> <số lượng>"
	if len(args) != 2 {
		return usageError(usage)
	}
	productID, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1], usage)
	if err != nil {
		return err
	}

	name, price, err := a.priceOf(ctx, productID)
	if err != nil {
		return err
	}

	err = a.cartService.AddItem(ctx, productID, qty, price)
	var degraded *services.DegradedError
	switch {
	case errors.As(err, &degraded):
		a.println("Không kết nối được máy chủ, sản phẩm được giữ tạm trong giỏ trên máy.")
		return nil
	case err != nil:
		return err
	}
	a.printf("Đã thêm %d x %s vào giỏ.\n", qty, name)
	return nil
}

// priceOf looks the product up. Offline, it falls back to the price of a
// line already in the cart so the add can still be kept locally.
func (a *App) priceOf(ctx context.Context, productID int64) (string, float64, error) {
	p, err := a.catalogService.Product(ctx, productID)
	if err == nil {
		return p.Name, p.PriceFor(), nil
	}
	if client.KindOf(err) != client.KindNetwork {
		return "", 0, err
	}
	for _, l := range a.cartService.Items() {
		if l.ProductID == productID {
			return lineName(l), l.UnitPrice, nil
		}
	}
	return fmt.Sprintf("Sản phẩm #%d", productID), 0, nil
}

// Update changes a line optimistically; the server is updated in the
// background and failures show up before the next prompt.
func (a *App) Update(ctx context.Context, action models.QuantityAction, args []string) error {
	usage, want := "inc <mã dòng>", 1
	switch action {
	case models.ActionDecrement:
		usage = "dec <mã dòng>"
	case models.ActionSet:
		usage, want = "set <mã dòng> <số lượng>", 2
	}
	if len(args) != want {
		return usageError(usage)
	}

	cartID, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	var qty int
	if action == models.ActionSet {
		if qty, err = parseQuantity(args[1], usage); err != nil {
			return err
		}
	}

	if err := a.cartService.UpdateItem(ctx, cartID, action, qty); err != nil {
		return err
	}
	a.printCart(a.cartService.Items())
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	const usage = "rm <mã dòng>"
	if len(args) != 1 {
		return usageError(usage)
	}
	cartID, err := parseID(args[0], usage)
	if err != nil {
		return err
	}
	if err := a.cartService.RemoveItem(ctx, cartID); err != nil {
		return err
	}
	a.printCart(a.cartService.Items())
	return nil
}

func (a *App) Clear(ctx context.Context) error {
	if err := a.cartService.ClearCart(ctx); err != nil {
		return err
	}
	a.println("Đã xoá toàn bộ giỏ hàng.")
	return nil
}
