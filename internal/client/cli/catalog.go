package cli

import "context"

func (a *App) Product(ctx context.Context, args []string) error {
	const usage = "product <mã sản phẩm>"
	if len(args) != 1 {
		return usageError(usage)
	}
	id, err := parseID(args[0], usage)
	if err != nil {
		return err
	}

	p, err := a.catalogService.Product(ctx, id)
	if err != nil {
		return err
	}
	a.printf("#%d %s\n", p.ID, p.Name)
	if p.SKU != "" {
		a.println("SKU:", p.SKU)
	}
	if p.Description != "" {
		a.println(p.Description)
	}
	a.println("Giá niêm yết:", formatVND(p.Price))
	if p.DealerPrice > 0 {
		a.println("Giá đại lý:", formatVND(p.DealerPrice))
	}

	n, err := a.catalogService.AvailableCount(ctx, id)
	if err != nil {
		a.log.Warn(ctx, "available count failed", "product_id", id, "error", err)
		a.println("Tồn kho: không xác định")
		return nil
	}
	if n == 0 {
		a.println("Tồn kho: hết hàng")
	} else {
		a.println("Tồn kho:", n)
	}
	return nil
}
