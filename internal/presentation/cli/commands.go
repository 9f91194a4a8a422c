package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	appinv "github.com/Zhima-Mochi/inventory-tracker/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/config"
)

// NewRootCommand builds the inventory-tracker command tree. Without a
// subcommand it runs the demonstration sequence and always succeeds.
func NewRootCommand() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "inventory-tracker",
		Short:         "Track item quantities in a JSON-backed inventory",
		Long:          "inventory-tracker keeps an item → quantity mapping persisted as a JSON document and reports low stock.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			// the demo never fails the process; a broken setup is only logged
			_ = withApp(v, func(ctx context.Context, app *App) error {
				RunDemo(ctx, app)
				return nil
			})(cmd, nil)
		},
	}

	pf := root.PersistentFlags()
	pf.String("file", "", "inventory JSON file (env INVENTORY_FILE)")
	pf.Int("threshold", 0, "low-stock threshold (env LOW_STOCK_THRESHOLD)")
	pf.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.String("log-format", "", "console or json (env LOG_FORMAT)")
	pf.String("redis-addr", "", "store the snapshot in Redis instead of the file (env REDIS_ADDR)")
	bindFlag(v, config.KeyInventoryFile, pf.Lookup("file"))
	bindFlag(v, config.KeyLowStockThreshold, pf.Lookup("threshold"))
	bindFlag(v, config.KeyLogLevel, pf.Lookup("log-level"))
	bindFlag(v, config.KeyLogFormat, pf.Lookup("log-format"))
	bindFlag(v, config.KeyRedisAddr, pf.Lookup("redis-addr"))

	root.AddCommand(
		newAddCommand(v),
		newRemoveCommand(v),
		newQtyCommand(v),
		newLowCommand(v),
		newReportCommand(v),
		newServeCommand(v),
	)
	return root
}

func newAddCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item> <quantity>",
		Short: "Add quantity to an item and save",
		Args:  cobra.ExactArgs(2),
		RunE: withAppArgs(v, func(ctx context.Context, app *App, args []string) error {
			if err := loadForUpdate(ctx, app); err != nil {
				return err
			}
			res := app.Service.AddItemText(ctx, args[0], args[1], nil)
			if !res.Applied {
				return fmt.Errorf("add %q %q: %s", args[0], args[1], res.Reason)
			}
			for _, line := range res.Journal.Lines() {
				fmt.Fprintln(app.Stdout, line)
			}
			return saved(app.Service.Save(ctx))
		}, appinv.WithDamagedSnapshotGuard()),
	}
}

func newRemoveCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item> <quantity>",
		Short: "Remove quantity from an item and save; the entry is cleared when stock runs out",
		Args:  cobra.ExactArgs(2),
		RunE: withAppArgs(v, func(ctx context.Context, app *App, args []string) error {
			qty, err := dominv.ParseQuantity(args[1])
			if err != nil {
				return fmt.Errorf("remove %q: %w", args[1], err)
			}
			if err := loadForUpdate(ctx, app); err != nil {
				return err
			}
			res := app.Service.RemoveItem(ctx, args[0], qty)
			if !res.Applied {
				return fmt.Errorf("remove %q: %s", args[0], res.Reason)
			}
			fmt.Fprintf(app.Stdout, "%s -> %d\n", args[0], res.Quantity)
			return saved(app.Service.Save(ctx))
		}, appinv.WithDamagedSnapshotGuard()),
	}
}

func newQtyCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "qty <item>",
		Short: "Print the quantity of an item (0 when absent)",
		Args:  cobra.ExactArgs(1),
		RunE: withAppArgs(v, func(ctx context.Context, app *App, args []string) error {
			app.Service.Load(ctx)
			fmt.Fprintln(app.Stdout, app.Service.Quantity(ctx, args[0]))
			return nil
		}),
	}
}

func newLowCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "low",
		Short: "List items strictly below the low-stock threshold",
		Args:  cobra.NoArgs,
		RunE: withAppArgs(v, func(ctx context.Context, app *App, _ []string) error {
			app.Service.Load(ctx)
			for _, name := range app.Service.LowStock(ctx, app.Config.Inventory.LowStockThreshold) {
				fmt.Fprintln(app.Stdout, name)
			}
			return nil
		}),
	}
}

func newReportCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the items report",
		Args:  cobra.NoArgs,
		RunE: withAppArgs(v, func(ctx context.Context, app *App, _ []string) error {
			app.Service.Load(ctx)
			app.Service.Report(ctx, app.Stdout)
			return nil
		}),
	}
}

// RunDemo runs the fixed demonstration sequence against app.
func RunDemo(ctx context.Context, app *App) {
	svc := app.Service

	svc.Load(ctx)
	svc.AddItem(ctx, "apple", 10, nil)
	svc.AddItem(ctx, "banana", 5, nil)

	// rejected: the quantity is not a whole number
	svc.AddItemText(ctx, "123", "ten", nil)

	svc.RemoveItem(ctx, "apple", 3)
	// rejected: never stocked
	svc.RemoveItem(ctx, "orange", 1)

	fmt.Fprintf(app.Stdout, "Apple stock: %d\n", svc.Quantity(ctx, "apple"))
	fmt.Fprintf(app.Stdout, "Low items: %s\n", formatList(svc.LowStock(ctx, app.Config.Inventory.LowStockThreshold)))

	svc.Report(ctx, app.Stdout)
	svc.Save(ctx)
}

// loadForUpdate loads the snapshot and refuses to go on when an existing
// snapshot could not be read, so a mutating command never overwrites it.
func loadForUpdate(ctx context.Context, app *App) error {
	res := app.Service.Load(ctx)
	if res.Applied || res.Reason == dominv.FailureReasonNotFound {
		return nil
	}
	return fmt.Errorf("load %s: %s; refusing to overwrite", app.Config.Inventory.File, res.Reason)
}

func saved(res *appinv.Result) error {
	if res.Applied {
		return nil
	}
	return errors.New("save: " + res.Reason)
}

// formatList renders names as a quoted list, e.g. ['banana', 'kiwi'].
func formatList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, quoteName(it))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// quoteName uses single quotes unless the name holds one and no double quote.
func quoteName(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	r := strings.NewReplacer(`\`, `\\`, q, `\`+q, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return q + r.Replace(s) + q
}

func withApp(v *viper.Viper, fn func(ctx context.Context, app *App) error, opts ...appinv.Option) func(*cobra.Command, []string) error {
	return withAppArgs(v, func(ctx context.Context, app *App, _ []string) error {
		return fn(ctx, app)
	}, opts...)
}

func withAppArgs(v *viper.Viper, fn func(ctx context.Context, app *App, args []string) error, opts ...appinv.Option) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := NewApp(ctx, config.Load(v), cmd.OutOrStdout(), opts...)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return err
		}
		defer app.Close()

		ctx = WithRunContext(ctx, app.Tel.Logger(), cmd.Name(), "")
		return fn(ctx, app, args)
	}
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("cli: bind flag %s: %v", key, err))
	}
}
