package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rakhulsr/axen-cart/app/configs"
	"github.com/Rakhulsr/axen-cart/app/helpers"
	"github.com/Rakhulsr/axen-cart/app/models"
	"github.com/Rakhulsr/axen-cart/app/models/migrations"
	"github.com/Rakhulsr/axen-cart/app/utils/calc"
	"github.com/Rakhulsr/axen-cart/app/utils/format"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup() (configs.ENV, *zap.Logger, error) {
	env, err := configs.LoadEnv()
	if err != nil {
		return configs.ENV{}, nil, err
	}
	logger, err := configs.NewLogger(env)
	if err != nil {
		return configs.ENV{}, nil, err
	}
	return env, logger, nil
}

// migrate creates the storage tables and closes db whether or not it succeeds.
func migrate(db *gorm.DB, logger *zap.Logger, database string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := migrations.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate %s: %w", database, err)
	}
	logger.Info("migration complete", zap.String("database", database))
	return nil
}

func serveAction(ctx context.Context, c *cli.Command) error {
	env, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, env, logger)
}

func RunCli() {
	cmd := &cli.Command{
		Name:   "axen-cart",
		Usage:  "Shopping cart API with shared cart storage",
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API (default)",
				Action: serveAction,
			},
			{
				Name:  "migrate",
				Usage: "Create the storage table used by STORAGE_DRIVER=mysql",
				Action: func(ctx context.Context, c *cli.Command) error {
					env, logger, err := setup()
					if err != nil {
						return err
					}
					defer func() { _ = logger.Sync() }()

					db, err := configs.OpenConnection(env, logger)
					if err != nil {
						return err
					}
					return migrate(db, logger, env.DBName)
				},
			},
			{
				Name:  "generate-keys",
				Usage: "Generate new session authentication and encryption keys for .env",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: ".env.new_keys", Usage: "file the keys are written to"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					_, logger, err := setup()
					if err != nil {
						return err
					}
					defer func() { _ = logger.Sync() }()

					if err := configs.GenerateAndPrintSessionKeys(c.String("out")); err != nil {
						return err
					}
					logger.Info("key generation complete, copy the keys to your .env file", zap.String("file", c.String("out")))
					return nil
				},
			},
			{
				Name:      "totals",
				Usage:     "Price a persisted cart JSON file with the configured policy",
				ArgsUsage: "<cart.json>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "shipping", Usage: "override SHIPPING_COST"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					path := c.Args().First()
					if path == "" {
						return fmt.Errorf("totals: missing cart file argument")
					}
					raw, err := os.ReadFile(path)
					if err != nil {
						return err
					}

					env, err := configs.LoadEnv()
					if err != nil {
						return err
					}
					policy := env.PricingPolicy()
					if shipping := c.String("shipping"); shipping != "" {
						cost, err := helpers.ParseAmount(shipping)
						if err != nil {
							return fmt.Errorf("--shipping: %w", err)
						}
						policy = policy.WithShipping(cost)
					}
					return printTotals(c.Root().Writer, raw, policy)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// printTotals reads raw the same way the cart store does, so a malformed
// file prices as an empty cart.
func printTotals(w io.Writer, raw []byte, policy models.PricingPolicy) error {
	cart := models.DecodeCart(raw)
	totals, err := calc.Compute(cart.Items, policy)

	for _, item := range cart.Items {
		fmt.Fprintf(w, "%-24s %3d x %10s = %10s\n", item.Name, item.Quantity, format.Money(item.Price), format.Money(item.LineTotal()))
	}
	fmt.Fprintf(w, "%-24s %27s\n", "Subtotal", format.Money(totals.Subtotal))
	fmt.Fprintf(w, "%-24s %27s\n", "Discount", format.Discount(totals.Discount))
	fmt.Fprintf(w, "%-24s %27s\n", "Shipping", format.Money(totals.Shipping))
	fmt.Fprintf(w, "%-24s %27s\n", "Total", format.Money(totals.Total))
	return err
}
