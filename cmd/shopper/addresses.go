package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"storefront/internal/domain/address"

	"github.com/spf13/cobra"
)

func newAddressesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "addresses", Aliases: []string{"address"}, Short: "Manage saved addresses"}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Show saved addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := rt.addresses().List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return printAddresses(cmd.OutOrStdout(), list)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "output as JSON")

	var req address.Request
	var kind string
	add := &cobra.Command{
		Use:   "add",
		Short: "Save a new address",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.AddressType = address.Type(kind)
			a, err := rt.addresses().Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printAddresses(cmd.OutOrStdout(), []address.Address{*a})
		},
	}
	f := add.Flags()
	f.StringVar(&kind, "type", string(address.TypeShipping), "shipping or billing")
	f.StringVar(&req.FirstName, "first-name", "", "recipient first name")
	f.StringVar(&req.LastName, "last-name", "", "recipient last name")
	f.StringVar(&req.Company, "company", "", "company")
	f.StringVar(&req.AddressLine1, "line1", "", "address line 1")
	f.StringVar(&req.AddressLine2, "line2", "", "address line 2")
	f.StringVar(&req.Landmark, "landmark", "", "landmark")
	f.StringVar(&req.City, "city", "", "city")
	f.StringVar(&req.State, "state", "", "state")
	f.StringVar(&req.Pincode, "pincode", "", "six digit pincode")
	f.StringVar(&req.Mobile, "mobile", "", "contact mobile")
	f.StringVar(&req.DeliveryInstructions, "instructions", "", "delivery instructions")
	f.BoolVar(&req.IsDefault, "default", false, "make this the default for its type")

	setDefault := &cobra.Command{
		Use:   "default <address-id>",
		Short: "Make an address the default for its type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.addresses().SetDefault(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now the default %s address\n", a.ID, a.AddressType)
			return nil
		},
	}

	var showType string
	show := &cobra.Command{
		Use:   "show [address-id]",
		Short: "Show one address, or the default of --type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				a   *address.Address
				err error
			)
			if len(args) == 1 {
				a, err = rt.addresses().Get(cmd.Context(), args[0])
			} else {
				a, err = rt.addresses().GetDefault(cmd.Context(), address.Type(showType))
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a)
		},
	}
	show.Flags().StringVar(&showType, "type", string(address.TypeShipping), "address type when no id is given")

	remove := &cobra.Command{
		Use:   "delete <address-id>",
		Short: "Delete an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.addresses().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "address deleted")
			return nil
		},
	}

	cmd.AddCommand(list, add, setDefault, show, remove)
	return cmd
}

func printAddresses(w io.Writer, list []address.Address) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "(none)")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tDEFAULT\tNAME\tCITY\tPINCODE")
	for _, a := range list {
		def := ""
		if a.IsDefault {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\n", a.ID, a.AddressType, def, a.FirstName, a.LastName, a.City, a.Pincode)
	}
	return tw.Flush()
}
