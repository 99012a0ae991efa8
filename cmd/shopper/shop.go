package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"storefront/internal/client/collection"
	"storefront/internal/domain/shop"

	"github.com/spf13/cobra"
)

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Inspect and change the cart"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cart := rt.cart()
			defer cart.Close()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), cart.Items(), asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	var item shop.LineItem
	add := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Add an item, or more of one already in the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart := rt.cart()
			defer cart.Close()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			item.ID = args[0]
			if err := cart.Add(cmd.Context(), item); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), cart.Items(), false)
		},
	}
	itemFlags(add, &item)
	add.Flags().IntVar(&item.Quantity, "qty", 1, "quantity to add")

	update := &cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Set the quantity of a line; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var qty int
			if _, err := fmt.Sscanf(args[1], "%d", &qty); err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			cart := rt.cart()
			defer cart.Close()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := cart.Update(cmd.Context(), args[0], qty); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), cart.Items(), false)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart := rt.cart()
			defer cart.Close()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := cart.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), cart.Items(), false)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cart := rt.cart()
			defer cart.Close()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			return cart.Clear(cmd.Context())
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the cart whenever it changes, until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.cfg.Live {
				return fmt.Errorf("watch needs the realtime feed, pass --live")
			}
			cart := rt.cart()
			defer cart.Close()
			out := cmd.OutOrStdout()
			stop := cart.OnChange(func(m collection.Mirror[shop.LineItem]) {
				fmt.Fprintf(out, "-- %s\n", m.LastSyncedAt.Format("15:04:05"))
				_ = printItems(out, m.Items, false)
			})
			defer stop()
			if err := cart.Reload(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.AddCommand(list, add, update, remove, clearCmd, watch)
	return cmd
}

func newWishlistCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wishlist", Short: "Inspect and change the wishlist"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := rt.wishlist()
			defer w.Close()
			if err := w.Reload(cmd.Context()); err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), w.Items(), asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	var item shop.LineItem
	add := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Save an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := rt.wishlist()
			defer w.Close()
			if err := w.Reload(cmd.Context()); err != nil {
				return err
			}
			item.ID = args[0]
			if err := w.Add(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d saved items\n", w.Count())
			return nil
		},
	}
	itemFlags(add, &item)

	remove := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Drop a saved item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := rt.wishlist()
			defer w.Close()
			if err := w.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := w.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d saved items\n", w.Count())
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "Place and track orders"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show past orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := rt.orders()
			defer orders.Close()
			if err := orders.Reload(cmd.Context()); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), orders.Items())
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED")
			for _, o := range orders.Items() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\n", o.ID, o.Status, collection.ItemCount(o.Items), o.Total, o.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	var addressID string
	place := &cobra.Command{
		Use:   "place",
		Short: "Order everything in the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := rt.orders()
			defer orders.Close()
			order, err := orders.Create(cmd.Context(), shop.CreateOrderRequest{ShippingAddressID: addressID})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s placed, total %.2f\n", order.ID, order.Total)
			return nil
		},
	}
	place.Flags().StringVar(&addressID, "address", "", "shipping address id")

	cancel := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order that has not shipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders := rt.orders()
			defer orders.Close()
			if err := orders.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s cancelled\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, place, cancel)
	return cmd
}

func itemFlags(cmd *cobra.Command, item *shop.LineItem) {
	f := cmd.Flags()
	f.StringVar(&item.Name, "name", "", "product name")
	f.Float64Var(&item.Price, "price", 0, "unit price")
	f.StringVar(&item.Image, "image", "", "image URL")
	f.StringVar(&item.Size, "size", "", "size")
	f.StringVar(&item.Color, "color", "", "color")
}

func printItems(w io.Writer, items []shop.LineItem, asJSON bool) error {
	if asJSON {
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "(empty)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", it.ID, it.Name, it.Quantity, it.Price, it.Subtotal())
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%.2f\n", collection.ItemCount(items), collection.Total(items))
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
