package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/game"
	"github.com/robalobadob/tradeloop/internal/trade"
)

var (
	inspectRandom bool
	inspectStarts bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [country]",
	Short: "Show the loaded dataset",
	Long: `Without arguments, lists every country with its partner count and export volume.
With a country name, lists that country's export links, strongest first.

  --random   inspect a uniformly picked country
  --starts   list only the countries a streak can start on`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRandom, "random", false, "inspect a random country")
	inspectCmd.Flags().BoolVar(&inspectStarts, "starts", false, "list streak start candidates")
}

func runInspect(cmd *cobra.Command, args []string) error {
	g, err := countries.Load(cfg.CountriesFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	sel := game.NewSelector(cfg.Rules, nil)

	switch {
	case len(args) == 1:
		c, err := g.Lookup(args[0])
		if err != nil {
			return fmt.Errorf("%q: %w", args[0], err)
		}
		fmt.Fprintln(out, linksTable(c))
	case inspectRandom:
		c, err := sel.PickNext(g.Countries())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, linksTable(c))
	case inspectStarts:
		fmt.Fprintln(out, countriesTable(sel.StartPool(g.Countries())))
	default:
		fmt.Fprintln(out, countriesTable(g.Countries()))
	}
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func styled(t *table.Table) *table.Table {
	return t.Border(lipgloss.NormalBorder()).StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
}

func countriesTable(cs []*trade.Country) string {
	t := styled(table.New()).Headers("Country", "ISO", "Partners", "Volume ($k)")
	for _, c := range cs {
		t.Row(c.Name, countries.NormalizeCode(c.ISOCode),
			strconv.Itoa(c.PartnerCount()), strconv.FormatFloat(c.TotalVolume(), 'f', 0, 64))
	}
	return t.String()
}

func linksTable(c *trade.Country) string {
	partners := make([]string, 0, len(c.Exports))
	for p := range c.Exports {
		partners = append(partners, p)
	}
	sort.Slice(partners, func(i, j int) bool {
		vi, vj := trade.ComparableValue(c.Exports[partners[i]]), trade.ComparableValue(c.Exports[partners[j]])
		if vi != vj {
			return vi > vj
		}
		return partners[i] < partners[j]
	})

	t := styled(table.New()).Headers("Partner", "Value ($k)", "Top product", "Top value ($k)")
	for _, p := range partners {
		l := c.Exports[p]
		t.Row(p, strconv.FormatFloat(trade.ComparableValue(l), 'f', 0, 64),
			countries.ProductIcon(l.TopProduct)+" "+l.TopProduct,
			strconv.FormatFloat(l.TopProductValue, 'f', 0, 64))
	}
	return fmt.Sprintf("%s (%s)  %s\n%s", c.Name, countries.NormalizeCode(c.ISOCode), countries.FlagURL(c.ISOCode), t.String())
}
