package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"autoparts/internal/inventory"
	"autoparts/internal/models"
	"autoparts/pkg/client"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func (a *CLI) partsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parts",
		Short: "List and manage parts",
	}
	cmd.AddCommand(
		a.partsListCommand(),
		a.partsGetCommand(),
		a.partsCreateCommand(),
		a.partsUpdateCommand(),
		a.partsDeleteCommand(),
	)
	return cmd
}

func (a *CLI) partsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List parts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parts, err := a.client().ListParts(models.PartFilter{
				Category: a.flag(cmd, "category"),
				Search:   a.flag(cmd, "search"),
			})
			if err != nil {
				return err
			}
			a.printParts(parts)
			return nil
		},
	}
	cmd.Flags().String("category", "", "only parts of this category")
	cmd.Flags().String("search", "", "only parts whose name or brand contains this")
	a.bindFlags(cmd)
	return cmd
}

func (a *CLI) partsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			part, err := a.client().GetPart(id)
			if err != nil {
				return err
			}
			a.printPart(part)
			return nil
		},
	}
}

func (a *CLI) partsCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a part",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			in, image, err := a.partInput(cmd)
			if err != nil {
				return err
			}
			part, err := c.CreatePart(in, image)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created part %d\n", part.ID)
			a.printPart(part)
			return nil
		},
	}
	partFlags(cmd)
	a.bindFlags(cmd)
	return cmd
}

func (a *CLI) partsUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Overwrite a part",
		Long:  "Overwrite a part. Name, brand, price, stock and category are required; description and image are kept unless given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			in, image, err := a.partInput(cmd)
			if err != nil {
				return err
			}
			part, err := c.UpdatePart(id, in, image)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated part %d\n", part.ID)
			a.printPart(part)
			return nil
		},
	}
	partFlags(cmd)
	a.bindFlags(cmd)
	return cmd
}

func (a *CLI) partsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a part and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			if err := c.DeletePart(id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted part %d\n", id)
			return nil
		},
	}
}

func (a *CLI) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show inventory figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parts, err := a.client().ListParts(models.PartFilter{})
			if err != nil {
				return err
			}
			stats := inventory.Summarize(parts)

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total parts\t%d\n", stats.TotalParts)
			fmt.Fprintf(w, "Total stock\t%d\n", stats.TotalStock)
			fmt.Fprintf(w, "Categories\t%d\n", stats.Categories)
			fmt.Fprintf(w, "Total value\t%s\n", stats.FormattedValue())
			fmt.Fprintf(w, "Out of stock\t%d\n", stats.OutOfStock)
			fmt.Fprintf(w, "Low stock\t%d\n", stats.LowStock)
			if err := w.Flush(); err != nil {
				return err
			}

			var attention []models.Part
			for _, p := range parts {
				if p.Stock < inventory.LowStockThreshold {
					attention = append(attention, p)
				}
			}
			if len(attention) > 0 {
				fmt.Fprintln(a.out, "\nNeeds restocking:")
				a.printParts(attention)
			}
			return nil
		},
	}
}

func partFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "part name")
	f.String("brand", "", "brand")
	f.String("price", "", "unit price, e.g. 12.99")
	f.String("stock", "", "units in stock")
	f.String("category", "", "category, e.g. filters")
	f.String("description", "", "description")
	f.String("image-url", "", "external image URL")
	f.String("image", "", "image file to upload")
}

// partInput reads the part flags. Optional fields are sent only when their
// flag was given.
func (a *CLI) partInput(cmd *cobra.Command) (models.PartInput, *client.Image, error) {
	in := models.PartInput{
		Name:     a.flag(cmd, "name"),
		Brand:    a.flag(cmd, "brand"),
		Price:    a.flag(cmd, "price"),
		Stock:    a.flag(cmd, "stock"),
		Category: a.flag(cmd, "category"),
	}
	if cmd.Flags().Changed("description") {
		desc := a.flag(cmd, "description")
		in.Description = &desc
	}
	if cmd.Flags().Changed("image-url") {
		u := a.flag(cmd, "image-url")
		in.ImageURL = &u
	}

	path := a.flag(cmd, "image")
	if path == "" {
		return in, nil, nil
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return in, nil, fmt.Errorf("failed to read image: %w", err)
	}
	return in, &client.Image{Name: filepath.Base(path), Content: data}, nil
}

func (a *CLI) printParts(parts []models.Part) {
	if len(parts) == 0 {
		fmt.Fprintln(a.out, "No parts found")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBRAND\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range parts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n", p.ID, p.Name, p.Brand, p.Category, p.Price, inventory.StockText(p.Stock))
	}
	_ = w.Flush()
}

func (a *CLI) printPart(p *models.Part) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", p.ID)
	fmt.Fprintf(w, "Name\t%s\n", p.Name)
	fmt.Fprintf(w, "Brand\t%s\n", p.Brand)
	fmt.Fprintf(w, "Category\t%s\n", p.Category)
	fmt.Fprintf(w, "Price\t%.2f\n", p.Price)
	fmt.Fprintf(w, "Stock\t%s\n", inventory.StockText(p.Stock))
	if p.Description != nil {
		fmt.Fprintf(w, "Description\t%s\n", *p.Description)
	}
	if p.ImageURL != nil {
		fmt.Fprintf(w, "Image\t%s\n", *p.ImageURL)
	}
	_ = w.Flush()
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid part id %q", raw)
	}
	return uint(id), nil
}
