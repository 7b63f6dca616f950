package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridworks/prodcost/app"
	"github.com/gridworks/prodcost/core/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the grid components and formulation template",
	RunE:  inspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspect(cmd *cobra.Command, args []string) error {
	g, tmpl, err := app.LoadSystem(systemPath)
	if err != nil {
		return err
	}
	fmt.Printf("system: %s\n", g.Name())
	for _, cat := range []model.Category{
		model.CategoryThermal,
		model.CategoryRenewableDispatch,
		model.CategoryStorage,
		model.CategoryLoad,
		model.CategoryBus,
	} {
		comps := g.GetComponents(cat)
		if len(comps) == 0 {
			continue
		}
		fmt.Printf("%s (%d):\n", cat, len(comps))
		for _, c := range comps {
			fmt.Printf("  %-20s max=%.1fMW min=%.1fMW available=%v\n",
				c.Name, c.Ratings.MaxActivePowerMW, c.Ratings.MinActivePowerMW, c.Available)
		}
	}
	fmt.Println("template:")
	for _, cat := range tmpl.Categories() {
		e, _ := tmpl.Get(cat)
		fmt.Printf("  %-20s %s\n", cat, e.Variant)
	}
	return nil
}
