package cli

import (
	"context"

	"github.com/dmitrijs2005/dealerclient/internal/client/models"
)

// Warranty asks for the registration details one by one and sends them.
func (a *App) Warranty(ctx context.Context) error {
	var req models.WarrantyRequest

	prompts := []struct {
		text string
		dst  *string
	}{
		{"Số serial", &req.SerialNumber},
		{"Tên khách hàng", &req.CustomerName},
		{"Số điện thoại khách hàng", &req.CustomerPhone},
		{"Email khách hàng (có thể bỏ trống)", &req.CustomerEmail},
	}
	for _, p := range prompts {
		v, err := getSimpleText(a.reader, p.text, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	date, err := getSimpleText(a.reader, "Ngày mua (dd/mm/yyyy, Enter = hôm nay)", a.out)
	if err != nil {
		return err
	}
	if req.PurchaseDate, err = parseDate(date); err != nil {
		return err
	}

	w, err := a.warrantyService.Register(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Đã kích hoạt bảo hành %s cho serial %s, hết hạn %s\n", w.WarrantyCode, w.SerialNumber, w.ExpiresAt.Local().Format(dateLayout))
	return nil
}
