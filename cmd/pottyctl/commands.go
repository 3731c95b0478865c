package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/pricing"
)

// calculator bundles the pricing core for the subcommands.
type calculator struct {
	prices *pricing.Calculator
	items  *lineitem.Aggregator
}

func newCalculator() *calculator {
	limits := domain.DefaultLimits()
	prices := pricing.New(limits)
	return &calculator{prices: prices, items: lineitem.New(prices, limits)}
}

func newRootCmd() *cobra.Command {
	calc := newCalculator()

	root := &cobra.Command{
		Use:           "pottyctl",
		Short:         "Price line items, orders and balances for portable toilet rentals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAmountCmd(calc),
		newTotalCmd(calc),
		newBalanceCmd(calc),
	)
	return root
}

func newAmountCmd(calc *calculator) *cobra.Command {
	var quantity, rate string

	cmd := &cobra.Command{
		Use:   "amount",
		Short: "Compute quantity × rate for one line item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := calc.items.ProductAmount(domain.Str(quantity), domain.Str(rate))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), amount)
			return nil
		},
	}
	cmd.Flags().StringVar(&quantity, "quantity", "", "number of units")
	cmd.Flags().StringVar(&rate, "rate", "", "price per unit in dollars")
	_ = cmd.MarkFlagRequired("quantity")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func newTotalCmd(calc *calculator) *cobra.Command {
	var cents, lines bool

	cmd := &cobra.Command{
		Use:   "total FILE",
		Short: "Sum the line items of a YAML or JSON order file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readLineItems(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			amounts, err := calc.items.Amounts(items)
			if err != nil {
				return err
			}
			total, err := calc.items.SumCents(amounts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if lines {
				for i, a := range amounts {
					s, err := calc.prices.CentsToDollars(a)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d\t%s\n", i, s)
				}
			}
			if cents {
				fmt.Fprintln(out, total)
				return nil
			}
			s, err := calc.prices.CentsToDollars(total)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cents, "cents", false, "print the total as integer cents")
	cmd.Flags().BoolVar(&lines, "lines", false, "print each line amount before the total")
	return cmd
}

func newBalanceCmd(calc *calculator) *cobra.Command {
	var total, paid, refunded string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Compute the balance due after payments and refunds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := calc.prices.NetPaidAmount(domain.Str(paid), domain.Str(refunded))
			if err != nil {
				return err
			}
			balance, err := calc.prices.BalanceDue(domain.Str(total), domain.Dec(net))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "balance_due\t%s\nnet_paid\t%s\n", balance.StringFixed(2), net.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&total, "total", "", "order total in dollars")
	cmd.Flags().StringVar(&paid, "paid", "", "amount paid in dollars")
	cmd.Flags().StringVar(&refunded, "refunded", "0", "amount refunded in dollars")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("paid")
	return cmd
}

// readLineItems decodes a list of items, or a mapping with a "products"
// list, from path. JSON documents are valid YAML and decode the same way.
func readLineItems(stdin io.Reader, path string) ([]domain.LineItem, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return []domain.LineItem{}, nil
	}

	list := doc.Content[0]
	switch {
	case list.Kind == yaml.ScalarNode && list.Tag == "!!null":
		return []domain.LineItem{}, nil
	case list.Kind == yaml.MappingNode:
		list = productsNode(list)
	}
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: expected a list of products or a \"products\" list", path)
	}

	items := make([]domain.LineItem, len(list.Content))
	for i, n := range list.Content {
		if err := n.Decode(&items[i]); err != nil {
			return nil, fmt.Errorf("%s: product at index %d: %w", path, i, err)
		}
	}
	return items, nil
}

// productsNode returns the value of the "products" key of a mapping node.
func productsNode(m *yaml.Node) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == "products" {
			return m.Content[i+1]
		}
	}
	return nil
}
