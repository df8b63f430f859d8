package layout

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/jetpack/cmd/util"
	"github.com/ValentinKolb/jetpack/lib/bench"
	"github.com/ValentinKolb/jetpack/lib/common"
	"github.com/ValentinKolb/jetpack/lib/compiler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"reflect"
)

var LayoutCmd = &cobra.Command{
	Use:   "layout [fixture...]",
	Short: "Print the compiled field layout of the benchmark types",
	Long: `Print the steps the compiler generates for each benchmark fixture: the
field name, its offset, the leading tag and the encoding. Without arguments
all fixtures are printed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}
		return common.InitLoggers(util.GetConfig())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fixtures, err := selectFixtures(bench.Fixtures(), args)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return writeJSON(os.Stdout, fixtures)
		}
		return writeTable(os.Stdout, fixtures)
	},
}

func init() {
	LayoutCmd.Flags().Bool("json", false, util.WrapString("Print the layout as JSON"))
}

// typeLayout is the layout of one fixture type
type typeLayout struct {
	Fixture string               `json:"fixture"`
	Type    string               `json:"type"`
	Fields  []compiler.FieldPlan `json:"fields"`
}

// selectFixtures keeps the fixtures named in names, or all if names is empty
func selectFixtures(fixtures []bench.Fixture, names []string) ([]bench.Fixture, error) {
	if len(names) == 0 {
		return fixtures, nil
	}

	selected := make([]bench.Fixture, 0, len(names))
	for _, name := range names {
		found := false
		for _, f := range fixtures {
			if f.Name == name {
				selected = append(selected, f)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown fixture: %s", name)
		}
	}
	return selected, nil
}

func describe(fixtures []bench.Fixture) ([]typeLayout, error) {
	layouts := make([]typeLayout, 0, len(fixtures))
	for _, f := range fixtures {
		t := reflect.TypeOf(f.Value).Elem()
		plans, err := compiler.Describe(t)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", f.Name, err)
		}
		layouts = append(layouts, typeLayout{Fixture: f.Name, Type: t.String(), Fields: plans})
	}
	return layouts, nil
}

func writeJSON(w io.Writer, fixtures []bench.Fixture) error {
	layouts, err := describe(fixtures)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(layouts)
}

func writeTable(w io.Writer, fixtures []bench.Fixture) error {
	layouts, err := describe(fixtures)
	if err != nil {
		return err
	}
	for i, l := range layouts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s)\n", l.Fixture, l.Type)
		for _, p := range l.Fields {
			fmt.Fprintf(w, "  %-12s %4d  %-18s %s\n", p.Name, p.Offset, p.Tag, p.Encoding)
		}
	}
	return nil
}
