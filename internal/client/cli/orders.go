package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Checkout shows the cart, asks for confirmation and an optional note, then
// places the order.
func (a *App) Checkout(ctx context.Context) error {
	a.cartService.Wait()
	lines := a.cartService.Items()
	if len(lines) == 0 {
		a.println("Giỏ hàng trống.")
		return nil
	}
	a.printCart(lines)

	answer, err := getSimpleText(a.reader, "Xác nhận đặt hàng? (y/n)", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		a.println("Đã huỷ.")
		return nil
	}
	note, err := getSimpleText(a.reader, "Ghi chú (có thể bỏ trống)", a.out)
	if err != nil {
		return err
	}

	order, err := a.orderService.PlaceOrder(ctx, note)
	if err != nil {
		return err
	}
	code := order.OrderCode
	if code == "" {
		code = fmt.Sprint(order.OrderID)
	}
	a.printf("Đặt hàng thành công: %s, tổng %s\n", code, formatVND(order.TotalAmount))
	return nil
}

func (a *App) Orders(ctx context.Context) error {
	orders, err := a.orderService.ListOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		a.println("Chưa có đơn hàng.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Mã đơn\tNgày\tTrạng thái\tTổng tiền")
	for _, o := range orders {
		code := o.OrderCode
		if code == "" {
			code = fmt.Sprint(o.OrderID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", code, o.CreatedAt.Local().Format(dateLayout), o.Status, formatVND(o.TotalAmount))
	}
	return tw.Flush()
}
