package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/monito/backend/internal/domain"
	"github.com/monito/backend/internal/infrastructure/pricelist"
	"github.com/monito/backend/internal/usecase"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the catalog schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", c.cfg.Store.Driver)
			return nil
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var (
		supplier      string
		date          string
		lang          string
		uploadID      string
		createMissing bool
		headerRow     int
		defaultUnit   string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a supplier price list (.csv, .xlsx or .xls)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			observedAt, err := usecase.ParseObservedAt(date)
			if err != nil {
				return err
			}

			layout := c.cfg.Import
			if headerRow > 0 {
				layout.HeaderRow = headerRow
			}
			if defaultUnit != "" {
				layout.DefaultUnit = defaultUnit
			}

			f, err := os.Open(path)
			if err != nil {
				return eris.Wrapf(err, "open %s", path)
			}
			defer f.Close()

			rows, err := pricelist.Read(f, filepath.Base(path), layout)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}

			result, err := c.app.Ingest.Ingest(cmd.Context(), usecase.IngestRequest{
				SupplierID:     supplier,
				ObservedAt:     observedAt,
				SourceUploadID: uploadID,
				Language:       lang,
				CreateMissing:  createMissing,
				Rows:           rows,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier ID the prices belong to")
	cmd.Flags().StringVar(&date, "date", "", "observation date, RFC 3339 or YYYY-MM-DD (default now)")
	cmd.Flags().StringVar(&lang, "lang", "", "language of the product names (en, id, es)")
	cmd.Flags().StringVar(&uploadID, "upload-id", "", "source upload ID (default generated)")
	cmd.Flags().BoolVar(&createMissing, "create-missing", false, "create catalog products for unmatched rows")
	cmd.Flags().IntVar(&headerRow, "header-row", 0, "1-based header row (default from config)")
	cmd.Flags().StringVar(&defaultUnit, "default-unit", "", "unit for rows without one")
	_ = cmd.MarkFlagRequired("supplier")
	return cmd
}

func (c *cli) productCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage catalog products",
	}

	var unit, category string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a catalog product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Catalog.CreateProduct(cmd.Context(), args[0], unit, category)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	add.Flags().StringVar(&unit, "unit", "", "base unit, e.g. kg, l or pcs")
	add.Flags().StringVar(&category, "category", "", "free-form category")
	_ = add.MarkFlagRequired("unit")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := c.app.Catalog.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), products)
		},
	}

	var supplier string
	prices := &cobra.Command{
		Use:   "prices <product-id>",
		Short: "Show active prices, or one supplier's history with --supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				obs []domain.PriceObservation
				err error
			)
			if supplier != "" {
				obs, err = c.app.Catalog.PriceHistory(cmd.Context(), supplier, args[0])
			} else {
				obs, err = c.app.Catalog.ActivePrices(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), obs)
		},
	}
	prices.Flags().StringVar(&supplier, "supplier", "", "show the full history for this supplier")

	cmd.AddCommand(add, ls, prices)
	return cmd
}

func (c *cli) aliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage product aliases",
	}

	var lang string
	add := &cobra.Command{
		Use:   "add <product-id> <text>",
		Short: "Map an alternative name to a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias, err := c.app.Aliases.CreateAlias(cmd.Context(), args[0], args[1], lang)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), alias)
		},
	}
	add.Flags().StringVar(&lang, "lang", "", "language tag of the alias (en, id, es)")

	rm := &cobra.Command{
		Use:   "rm <alias-id>",
		Short: "Delete an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Aliases.DeleteAlias(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted alias %s\n", args[0])
			return nil
		},
	}

	ls := &cobra.Command{
		Use:   "ls <product-id>",
		Short: "List a product's aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, err := c.app.Aliases.ListAliases(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), aliases)
		},
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "Resolve a product name against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Matching.Resolve(cmd.Context(), strings.Join(args, " "), lang)
			lowConfidence := errors.Is(err, domain.ErrLowConfidence)
			if err != nil && !lowConfidence {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				*domain.MatchResult
				LowConfidence bool `json:"lowConfidence"`
			}{result, lowConfidence})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language of the query (en, id, es)")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	var (
		name, price, unit, qty  string
		supplier, lang, product string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Look for cheaper suppliers of a scanned item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanned, err := decimal.NewFromString(price)
			if err != nil {
				return eris.Wrapf(domain.ErrInvalidRequest, "price %q is not a number", price)
			}
			quantity := decimal.Zero
			if qty != "" {
				if quantity, err = decimal.NewFromString(qty); err != nil {
					return eris.Wrapf(domain.ErrInvalidRequest, "quantity %q is not a number", qty)
				}
			}

			report, err := c.app.Deals.Compare(cmd.Context(), domain.ScannedItem{
				RawName:      name,
				Language:     lang,
				ProductID:    product,
				ScannedPrice: scanned,
				Unit:         unit,
				Quantity:     quantity,
				SupplierID:   supplier,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "scanned product name")
	cmd.Flags().StringVar(&price, "price", "", "scanned total price")
	cmd.Flags().StringVar(&unit, "unit", "", "unit of the scanned quantity")
	cmd.Flags().StringVar(&qty, "qty", "", "scanned quantity (default 1)")
	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier the item was bought from")
	cmd.Flags().StringVar(&lang, "lang", "", "language of the name (en, id, es)")
	cmd.Flags().StringVar(&product, "product", "", "skip matching and compare this product ID")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}
