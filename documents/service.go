package documents

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

// Service turns stored billing documents into PDFs and e-mails them.
type Service struct {
	db       *store.DB
	renderer *Renderer
	mailer   Mailer
}

func NewService(db *store.DB, renderer *Renderer, mailer Mailer) *Service {
	return &Service{db: db, renderer: renderer, mailer: mailer}
}

// Sheet assembles the printable content of a document: order lines for
// invoices, the deposited product for deposit receipts.
func (s *Service) Sheet(ctx context.Context, doc *store.Document) (*Sheet, error) {
	c, err := s.db.GetCustomer(ctx, doc.CustomerID)
	if err != nil {
		return nil, err
	}
	sheet := &Sheet{
		Title:         Title(doc.DocType),
		Number:        doc.Number,
		Date:          doc.DocDate,
		CustomerName:  c.FullName(),
		Total:         doc.TotalAmount,
		PaymentStatus: doc.PaymentStatus,
		PaymentMethod: doc.PaymentMethod,
		Notes:         doc.Comments,
	}
	addrs, err := s.db.ListCustomerAddresses(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		a := addrs[0]
		sheet.CustomerLines = append(sheet.CustomerLines, a.Street, strings.TrimSpace(a.PostalCode+" "+a.City))
	}
	if c.Email != "" {
		sheet.CustomerLines = append(sheet.CustomerLines, c.Email)
	}

	switch {
	case doc.OrderID != nil && doc.DepositID == nil:
		o, err := s.db.GetOrderWithDetails(ctx, *doc.OrderID)
		if err != nil {
			return nil, err
		}
		for _, d := range o.Details {
			sheet.Lines = append(sheet.Lines, Line{
				Label:     d.ProductLabel,
				Quantity:  d.Quantity,
				UnitPrice: d.UnitPrice,
				Amount:    d.LineTotal(),
			})
		}
	case doc.DepositID != nil:
		dep, err := s.db.GetDeposit(ctx, *doc.DepositID)
		if err != nil {
			return nil, err
		}
		sheet.Lines = []Line{{
			Label:     "Deposit " + dep.ProductLabel,
			Quantity:  1,
			UnitPrice: doc.TotalAmount,
			Amount:    doc.TotalAmount,
		}}
	}
	return sheet, nil
}

// DocumentPDF renders a stored document.
func (s *Service) DocumentPDF(ctx context.Context, id int64) ([]byte, *store.Document, error) {
	doc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sheet, err := s.Sheet(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.renderer.Render(sheet)
	return data, doc, err
}

// DepositReceiptPDF renders the receipt issued for a deposit.
func (s *Service) DepositReceiptPDF(ctx context.Context, depositID int64) ([]byte, *store.Document, error) {
	doc, err := s.db.GetDepositDocument(ctx, depositID, store.DocDepositReceipt)
	if err != nil {
		return nil, nil, err
	}
	return s.DocumentPDF(ctx, doc.ID)
}

// FileName is the attachment name of a document.
func FileName(doc *store.Document) string {
	return fmt.Sprintf("%s-%s.pdf", doc.DocType, doc.Number)
}

// EmailDocument sends the PDF of a document to its customer.
func (s *Service) EmailDocument(ctx context.Context, id int64) error {
	doc, err := s.db.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return s.email(ctx, doc)
}

// EmailDepositReceipt sends a deposit's receipt to its customer.
func (s *Service) EmailDepositReceipt(ctx context.Context, depositID int64) error {
	doc, err := s.db.GetDepositDocument(ctx, depositID, store.DocDepositReceipt)
	if err != nil {
		return err
	}
	return s.email(ctx, doc)
}

func (s *Service) email(ctx context.Context, doc *store.Document) error {
	if doc.CustomerEmail == "" {
		return lifecycle.Invalid("email", "customer has no e-mail address")
	}
	data, _, err := s.DocumentPDF(ctx, doc.ID)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s %s", Title(doc.DocType), doc.Number)
	body := fmt.Sprintf("Hello %s,\n\nPlease find attached %s %s.\n", doc.CustomerName, strings.ToLower(Title(doc.DocType)), doc.Number)
	if err := s.mailer.Send(doc.CustomerEmail, subject, body, Attachment{Name: FileName(doc), Data: data}); err != nil {
		log.WithFields(log.Fields{"document": doc.Number, "to": doc.CustomerEmail}).WithError(err).Error("documents: send mail")
		return fmt.Errorf("send %s: %w", doc.Number, err)
	}
	log.WithField("document", doc.Number).Info("documents: mailed")
	return nil
}
