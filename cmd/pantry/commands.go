package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mmynk/pantry/internal/catalog"
	"github.com/mmynk/pantry/internal/models"
	"github.com/mmynk/pantry/internal/projection"
)

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "register a batch of a product",
		ArgsUsage: "BARCODE DATE [QUANTITY]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "product name (looked up when omitted)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.ShowSubcommandHelp(c)
			}
			barcode := c.Args().Get(0)
			date, err := models.ParseDate(c.Args().Get(1))
			if err != nil {
				return err
			}
			qty, err := optionalInt(c.Args().Get(2), 1)
			if err != nil {
				return err
			}

			s, err := open(c, openOpts{lookup: true})
			if err != nil {
				return err
			}
			defer s.Close()

			reg, err := s.inv.Register(c.Context, barcode, c.String("name"), date, qty)
			if err != nil {
				return err
			}

			out := c.App.Writer
			switch reg.Kind {
			case catalog.Created:
				fmt.Fprintf(out, "Added new product %d.\n", reg.GroupID)
			case catalog.BatchAdded:
				fmt.Fprintf(out, "Added batch expiring %s to product %d.\n", date.Display(), reg.GroupID)
			case catalog.MergePending:
				p := reg.Pending
				ok, err := confirm(c, fmt.Sprintf("%s already has %d expiring %s. Add %d more?",
					displayName(p.Name, p.Barcode), p.CurrentQty, p.ExpiryDate.Display(), p.QuantityToAdd))
				if err != nil || !ok {
					return err
				}
				if err := s.inv.ConfirmMerge(c.Context, *p); err != nil {
					return err
				}
				fmt.Fprintf(out, "Batch now holds %d.\n", p.CurrentQty+p.QuantityToAdd)
			}
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "show products with their expiry status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "filter by name or barcode"},
			&cli.StringFlag{Name: "sort", Usage: "expiry, modified, name or registered"},
			&cli.BoolFlag{Name: "expired", Usage: "only products with an expired batch"},
		},
		Action: func(c *cli.Context) error {
			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			groups := s.inv.View(projection.View{
				Search:      c.String("search"),
				Sort:        projection.ParseSortKey(c.String("sort")),
				ExpiredOnly: c.Bool("expired"),
			})
			if len(groups) == 0 {
				fmt.Fprintln(c.App.Writer, "No products.")
				return nil
			}
			return writeTable(c.App.Writer, groups)
		},
	}
}

func writeTable(w io.Writer, groups []projection.AnnotatedGroup) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBARCODE\tNAME\tEXPIRY\tQTY\tDAYS\tSTATUS")
	for _, g := range groups {
		for i, b := range g.Batches {
			id, barcode, name := "", "", ""
			if i == 0 {
				id = strconv.FormatInt(g.Group.ID, 10)
				barcode = g.Group.Barcode
				name = g.Group.Name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				id, barcode, name, b.ExpiryDate.Display(), b.Quantity, b.DaysLeft, b.Status)
		}
	}
	return tw.Flush()
}

func incCommand() *cli.Command {
	return adjustCommand("inc", "increase a batch quantity", 1)
}

func decCommand() *cli.Command {
	return adjustCommand("dec", "decrease a batch quantity (never below 1)", -1)
}

func adjustCommand(name, usage string, sign int) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "ID DATE [AMOUNT]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.ShowSubcommandHelp(c)
			}
			id, date, err := batchRef(c)
			if err != nil {
				return err
			}
			amount, err := optionalInt(c.Args().Get(2), 1)
			if err != nil {
				return err
			}

			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			qty, err := s.inv.Adjust(c.Context, id, date, sign*amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Quantity is now %d.\n", qty)
			return nil
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "remove a batch",
		ArgsUsage: "ID DATE",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.ShowSubcommandHelp(c)
			}
			id, date, err := batchRef(c)
			if err != nil {
				return err
			}

			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			g, ok := s.inv.Find(id)
			if !ok {
				return catalog.ErrNotFound
			}
			ok, err = confirm(c, fmt.Sprintf("Remove the batch of %s expiring %s?",
				displayName(g.Name, g.Barcode), date.Display()))
			if err != nil || !ok {
				return err
			}

			removed, err := s.inv.RemoveBatch(c.Context, id, date)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(c.App.Writer, "Removed the last batch; the product is gone.")
			} else {
				fmt.Fprintln(c.App.Writer, "Batch removed.")
			}
			return nil
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "change a product's name, barcode or batches",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "new name"},
			&cli.StringFlag{Name: "barcode", Usage: "new barcode"},
			&cli.StringSliceFlag{Name: "batch", Usage: "DATE=QUANTITY; replaces all batches when given"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.ShowSubcommandHelp(c)
			}
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", c.Args().First())
			}

			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			g, ok := s.inv.Find(id)
			if !ok {
				return catalog.ErrNotFound
			}
			name, barcode, expiries := g.Name, g.Barcode, g.Expiries
			if c.IsSet("name") {
				name = c.String("name")
			}
			if c.IsSet("barcode") {
				barcode = c.String("barcode")
			}
			if c.IsSet("batch") {
				expiries, err = parseBatches(c.StringSlice("batch"))
				if err != nil {
					return err
				}
			}

			if _, err := s.inv.Edit(c.Context, id, name, barcode, expiries); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Product %d updated.\n", id)
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "delete every product",
		Action: func(c *cli.Context) error {
			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			n := len(s.inv.Groups())
			ok, err := confirm(c, fmt.Sprintf("Delete all %d products? This cannot be undone.", n))
			if err != nil || !ok {
				return err
			}
			if err := s.inv.Clear(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "All products deleted.")
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write all products as JSON (or a spreadsheet)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "file to write; stdout when omitted"},
			&cli.StringFlag{Name: "xlsx", Usage: "write an .xlsx spreadsheet to this file instead"},
		},
		Action: func(c *cli.Context) error {
			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			if path := c.String("xlsx"); path != "" {
				return writeXLSX(c, s, path)
			}

			n, err := s.inv.Export(c.Context, newClipboard(c.String("out"), c.App.Writer))
			if err != nil {
				return err
			}
			if c.IsSet("out") {
				fmt.Fprintf(c.App.Writer, "Exported %d products.\n", n)
			}
			return nil
		},
	}
}

func writeXLSX(c *cli.Context, s *session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.inv.ExportXLSX(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Spreadsheet written to %s.\n", path)
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "replace all products with exported JSON",
		ArgsUsage: "[FILE]",
		Action: func(c *cli.Context) error {
			text, err := readInput(c)
			if err != nil {
				return err
			}

			s, err := open(c, openOpts{})
			if err != nil {
				return err
			}
			defer s.Close()

			groups, err := s.inv.PrepareImport(text)
			if err != nil {
				return err
			}
			return replace(c, s, groups, "imported")
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "move products between devices with a 6-digit code",
		Subcommands: []*cli.Command{
			{
				Name:  "push",
				Usage: "upload products and print a code",
				Action: func(c *cli.Context) error {
					s, err := open(c, openOpts{sync: true})
					if err != nil {
						return err
					}
					defer s.Close()

					code, expiresAt, err := s.inv.SyncPush(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Sync code: %s (valid until %s)\n", code, expiresAt.Local().Format(time.Kitchen))
					return nil
				},
			},
			{
				Name:      "pull",
				Usage:     "replace products with the ones behind a code",
				ArgsUsage: "CODE",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return cli.ShowSubcommandHelp(c)
					}

					s, err := open(c, openOpts{sync: true})
					if err != nil {
						return err
					}
					defer s.Close()

					groups, err := s.inv.SyncPull(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return replace(c, s, groups, "received")
				},
			},
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "look a barcode up in the reference list",
		ArgsUsage: "BARCODE",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.ShowSubcommandHelp(c)
			}
			s, err := open(c, openOpts{lookup: true})
			if err != nil {
				return err
			}
			defer s.Close()

			if name, ok := s.inv.LookupName(c.Args().First()); ok {
				fmt.Fprintln(c.App.Writer, name)
				return nil
			}
			fmt.Fprintln(c.App.Writer, "Not in the reference list.")
			return nil
		},
	}
}

// replace asks before overwriting the catalog with groups.
func replace(c *cli.Context, s *session, groups []models.ProductGroup, what string) error {
	ok, err := confirm(c, fmt.Sprintf("Replace all %d current products with %d %s products?",
		len(s.inv.Groups()), len(groups), what))
	if err != nil || !ok {
		return err
	}
	if err := s.inv.Replace(c.Context, groups); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d products %s.\n", len(groups), what)
	return nil
}

func readInput(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.App.Reader)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func batchRef(c *cli.Context) (int64, models.Date, error) {
	id, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
	if err != nil {
		return 0, models.Date{}, fmt.Errorf("invalid product id %q", c.Args().Get(0))
	}
	date, err := models.ParseDate(c.Args().Get(1))
	if err != nil {
		return 0, models.Date{}, err
	}
	return id, date, nil
}

func optionalInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

// parseBatches parses DATE=QUANTITY pairs.
func parseBatches(pairs []string) ([]models.ExpiryBatch, error) {
	out := make([]models.ExpiryBatch, 0, len(pairs))
	for _, pair := range pairs {
		dateStr, qtyStr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("batch %q: want DATE=QUANTITY", pair)
		}
		date, err := models.ParseDate(strings.TrimSpace(dateStr))
		if err != nil {
			return nil, fmt.Errorf("batch %q: %w", pair, err)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
		if err != nil {
			return nil, fmt.Errorf("batch %q: invalid quantity", pair)
		}
		out = append(out, models.ExpiryBatch{ExpiryDate: date, Quantity: qty})
	}
	return out, nil
}

func displayName(name, barcode string) string {
	if name != "" {
		return name
	}
	return barcode
}
