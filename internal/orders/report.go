package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/shopspring/decimal"
)

// ReportHeader is the first row of every order report.
var ReportHeader = []string{"Order ID", "Date", "Status", "Total Amount", "Items", "Quantities"}

// CurrencySymbol prefixes report amounts.
const CurrencySymbol = "₹"

// Uploader stores a finished report and returns where it can be downloaded.
type Uploader interface {
	Upload(ctx context.Context, name string, report []byte) (string, error)
}

// ExportCSV writes the active orders, most recent first, as CSV.
func (b *Book) ExportCSV(ctx context.Context, w io.Writer) error {
	list, err := b.List(ctx)
	if err != nil {
		return err
	}
	return WriteReport(w, list)
}

// WriteReport writes list as an order report.
// Dates use the US month/day/year form; multi-item columns are joined with "; ".
func WriteReport(w io.Writer, list []model.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return err
	}
	for _, o := range list {
		titles := make([]string, len(o.Items))
		quantities := make([]string, len(o.Items))
		for i, it := range o.Items {
			titles[i] = it.Product.Title
			quantities[i] = strconv.Itoa(it.Quantity)
		}
		row := []string{
			o.ID,
			o.CreatedAt.Format("1/2/2006"),
			string(o.Status),
			CurrencySymbol + decimal.NewFromFloat(o.Total).StringFixed(2),
			strings.Join(titles, "; "),
			strings.Join(quantities, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PublishReport exports the active orders and hands the report to up under
// the name returned by name for the current day.
func (b *Book) PublishReport(ctx context.Context, up Uploader, name func(time.Time) string) (string, error) {
	var buf bytes.Buffer
	if err := b.ExportCSV(ctx, &buf); err != nil {
		return "", err
	}
	return up.Upload(ctx, name(b.now().UTC()), buf.Bytes())
}
