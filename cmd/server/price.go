package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumashape/insert-pricing/internal/config"
	"github.com/lumashape/insert-pricing/internal/logging"
	"github.com/lumashape/insert-pricing/internal/money"
	"github.com/lumashape/insert-pricing/internal/orders"
	"github.com/lumashape/insert-pricing/internal/pricing"
)

func newPriceCmd() *cobra.Command {
	var (
		paramsFile string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "price <cart.json>",
		Short: "Price a cart file and print the breakdown",
		Long: `Price a cart file offline with the default parameters, PRICING_PARAMS_FILE,
or --params. The file holds either a JSON array of cart items or {"items": [...]}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := priceParameters(paramsFile)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read cart: %w", err)
			}
			entries, err := decodeCart(raw)
			if err != nil {
				return err
			}

			result := pricing.CalculateOrderPricing(orders.SelectedItems(entries), &params)
			if err := orders.CheckQuote(result); err != nil {
				return fmt.Errorf("price cart: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return renderBreakdown(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&paramsFile, "params", "", "YAML pricing parameters file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full breakdown as JSON")
	return cmd
}

func priceParameters(flagPath string) (pricing.Parameters, error) {
	if flagPath != "" {
		return config.LoadParameters(flagPath)
	}
	cfg, err := config.Load(logging.Nop())
	if err != nil {
		return pricing.Parameters{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.Parameters, nil
}

func decodeCart(raw []byte) ([]orders.CartEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var entries []orders.CartEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		return entries, nil
	}

	var wrapped quoteRequest
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return wrapped.Items, nil
}

func renderBreakdown(w io.Writer, result pricing.OrderPricing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "ITEM\tQTY\tIN3/UNIT\tMATERIAL/UNIT\tMATERIAL\tTEXT\t")
	for _, item := range result.Items {
		text := ""
		if item.HasTextEngraving {
			text = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%s\t%s\t\n",
			item.Name, item.Qty, item.UnitVolumeIn3,
			money.FormatUSD(item.UnitMaterialCostWithWaste),
			money.FormatUSD(item.LineMaterialCostWithWaste),
			text,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := result.Totals
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	rows := []struct {
		label  string
		amount float64
	}{
		{"Material", t.MaterialCostWithWaste},
		{"Engraving", t.EngravingFee},
		{"Design time", t.DesignTimeCost},
		{"Machine time", t.MachineTimeCost},
		{"Consumables", t.ConsumablesCost},
		{"Shipping", t.ShippingCost},
		{"Cost before margins", t.TotalCostBeforeMargins},
		{"Kaiser payout", t.KaiserPayout},
		{"Lumashape payout", t.LumashapePayout},
		{"Subtotal", t.CustomerSubtotal},
		{fmt.Sprintf("Discount (%.0f%%)", t.DiscountPct*100), -t.DiscountAmount},
		{"Total", t.CustomerTotal},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", row.label, money.FormatUSD(row.amount))
	}
	return tw.Flush()
}
