package storefront

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/orders"
	"github.com/shopspring/decimal"
)

// ShopUsage lists the shopper commands understood by Shop.
const ShopUsage = `usage: shop <command> [flags] [args]
  browse      [-search q] [-category slug] [-min n] [-max n] [-pages n]
  categories
  buy         [-username u] [-password p] <product-id[:quantity]>...
  orders      [-username u] [-password p]
  cancel      [-username u] [-password p] <order-id>`

// Shop runs one shopper command on s and writes the result to out.
// Commands behind the login wall take -username and -password, defaulting
// to SF_USERNAME and SF_PASSWORD.
func Shop(ctx context.Context, s *Session, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(ShopUsage)
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)

	switch cmd {
	case "browse":
		search := fs.String("search", "", "search query, wins over -category")
		category := fs.String("category", "", "category slug")
		minPrice := fs.Float64("min", 0, "lowest price shown")
		maxPrice := fs.Float64("max", model.DefaultFilters().MaxPrice, "highest price shown")
		pages := fs.Int("pages", 1, "pages to load")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		s.Filters.SetSearch(*search)
		s.Filters.SetCategory(*category)
		s.Filters.SetPriceRange(*minPrice, *maxPrice)
		return s.browse(ctx, out, *pages)

	case "categories":
		cats, err := s.Client.Categories(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tNAME")
		for _, c := range cats {
			fmt.Fprintf(tw, "%s\t%s\n", c.Slug, c.Name)
		}
		return tw.Flush()

	case "buy":
		login := s.loginFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		lines, err := parseLines(fs.Args())
		if err != nil {
			return err
		}
		if err := login(ctx); err != nil {
			return err
		}
		return s.buy(ctx, out, lines)

	case "orders":
		login := s.loginFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := login(ctx); err != nil {
			return err
		}
		return s.printOrders(ctx, out)

	case "cancel":
		login := s.loginFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("cancel needs exactly one order id")
		}
		if err := login(ctx); err != nil {
			return err
		}
		if err := s.CancelOrder(ctx, fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(out, "order %s cancelled\n", fs.Arg(0))
		return nil
	}
	return fmt.Errorf("unknown shop command %q\n%s", cmd, ShopUsage)
}

// loginFlags registers credential flags on fs and returns the login step.
func (s *Session) loginFlags(fs *flag.FlagSet) func(context.Context) error {
	username := fs.String("username", os.Getenv("SF_USERNAME"), "account username")
	password := fs.String("password", os.Getenv("SF_PASSWORD"), "account password")
	return func(ctx context.Context) error {
		if _, err := s.Login(ctx, *username, *password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		return nil
	}
}

func (s *Session) browse(ctx context.Context, out io.Writer, pages int) error {
	for i := 0; i < pages; i++ {
		more, err := s.Feed.LoadNext(ctx)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	visible := s.Feed.Visible()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE")
	for _, p := range visible {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Title, p.Category, money(p.Price))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d shown, %d of %d loaded\n", len(visible), len(s.Feed.Products()), s.Feed.Total())
	return nil
}

// cartLine is one product-id[:quantity] argument of buy.
type cartLine struct {
	id, quantity int
}

func parseLines(args []string) ([]cartLine, error) {
	if len(args) == 0 {
		return nil, errors.New("buy needs at least one product id")
	}
	lines := make([]cartLine, 0, len(args))
	for _, arg := range args {
		idText, qtyText, hasQty := strings.Cut(arg, ":")
		id, err := strconv.Atoi(idText)
		if err != nil {
			return nil, fmt.Errorf("bad product id %q", idText)
		}
		qty := 1
		if hasQty {
			if qty, err = strconv.Atoi(qtyText); err != nil {
				return nil, fmt.Errorf("bad quantity %q", qtyText)
			}
		}
		lines = append(lines, cartLine{id: id, quantity: qty})
	}
	return lines, nil
}

func (s *Session) buy(ctx context.Context, out io.Writer, lines []cartLine) error {
	for _, l := range lines {
		p, err := s.Client.GetProduct(ctx, l.id)
		if err != nil {
			return fmt.Errorf("product %d: %w", l.id, err)
		}
		s.Cart.AddItem(p)
		if l.quantity != 1 {
			s.SetQuantity(p.ID, l.quantity)
		}
	}

	items := s.Cart.TotalItems()
	order, err := s.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s placed: %d items, total %s\n", order.ID, items, money(order.Total))
	return nil
}

func (s *Session) printOrders(ctx context.Context, out io.Writer) error {
	list, err := s.OrderHistory(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, o := range list {
		n := 0
		for _, it := range o.Items {
			n += it.Quantity
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.ID, o.CreatedAt.Format("1/2/2006"), o.Status, n, money(o.Total))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats := orders.Summarize(list)
	fmt.Fprintf(out, "%d orders, %d completed, %s spent\n", stats.TotalOrders, stats.CompletedOrders, money(stats.TotalSpent))
	return nil
}

func money(v float64) string {
	return orders.CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}
