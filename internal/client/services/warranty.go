package services

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/client/client"
	"github.com/dmitrijs2005/dealerclient/internal/client/credentials"
	"github.com/dmitrijs2005/dealerclient/internal/client/models"
	"github.com/dmitrijs2005/dealerclient/internal/logging"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

type WarrantyService interface {
	Register(ctx context.Context, req models.WarrantyRequest) (*models.Warranty, error)
}

type warrantyService struct {
	client client.Client
	store  credentials.Store
	log    logging.Logger
	now    func() time.Time
}

func NewWarrantyService(c client.Client, store credentials.Store, log logging.Logger) WarrantyService {
	if log == nil {
		log = logging.Discard()
	}
	return &warrantyService{client: c, store: store, log: log.With("service", "warranty"), now: time.Now}
}

// Register validates req locally, stamps the dealer id of the session and
// sends it. A zero purchase date means today.
func (s *warrantyService) Register(ctx context.Context, req models.WarrantyRequest) (*models.Warranty, error) {
	req.SerialNumber = strings.TrimSpace(req.SerialNumber)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.ReplaceAll(strings.TrimSpace(req.CustomerPhone), " ", "")
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if req.PurchaseDate.IsZero() {
		req.PurchaseDate = s.now()
	}

	if fields := s.validate(req); len(fields) > 0 {
		return nil, validationError("invalid warranty registration", fields...)
	}

	dealer, err := dealerID(ctx, s.store)
	if err != nil {
		return nil, err
	}
	req.DealerID = dealer

	w, err := s.client.RegisterWarranty(ctx, req)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "warranty registered", "serial", req.SerialNumber, "warranty_id", w.WarrantyID)
	return w, nil
}

func (s *warrantyService) validate(req models.WarrantyRequest) []client.FieldError {
	var fields []client.FieldError
	if req.SerialNumber == "" {
		fields = append(fields, client.FieldError{Field: "serialNumber", Message: "serial number is required"})
	}
	if req.CustomerName == "" {
		fields = append(fields, client.FieldError{Field: "customerName", Message: "customer name is required"})
	}
	switch {
	case req.CustomerPhone == "":
		fields = append(fields, client.FieldError{Field: "customerPhone", Message: "customer phone is required"})
	case !phonePattern.MatchString(req.CustomerPhone):
		fields = append(fields, client.FieldError{Field: "customerPhone", Message: "customer phone is invalid"})
	}
	if req.CustomerEmail != "" {
		if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
			fields = append(fields, client.FieldError{Field: "customerEmail", Message: "customer email is invalid"})
		}
	}
	if req.PurchaseDate.After(s.now()) {
		fields = append(fields, client.FieldError{Field: "purchaseDate", Message: "purchase date is in the future"})
	}
	return fields
}
