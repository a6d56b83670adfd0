package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type formatter func(w io.Writer, v any) error

func formatterFor(name string) (formatter, error) {
	switch name {
	case "", "table":
		return writeTable, nil
	case "json":
		return writeJSON, nil
	case "yaml":
		return writeYAML, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", name)
	}
}

func (a *app) render(cmd *cobra.Command, v any) error {
	f, err := formatterFor(a.output)
	if err != nil {
		return err
	}
	return f(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML emits the JSON field names so both formats read the same
func writeYAML(w io.Writer, v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

var tableColumns = []string{"token", "client_name", "status", "progress", "payment_status", "outstanding", "is_active"}

// writeTable prints lists of clients as columns and anything else as key/value rows
func writeTable(w io.Writer, v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	switch data := generic.(type) {
	case []any:
		for i, col := range tableColumns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col)
		}
		fmt.Fprintln(tw)
		for _, row := range data {
			obj, _ := row.(map[string]any)
			for i, col := range tableColumns {
				if i > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, scalar(obj[col]))
			}
			fmt.Fprintln(tw)
		}
	case map[string]any:
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, scalar(data[k]))
		}
	default:
		fmt.Fprintln(tw, scalar(data))
	}
	return tw.Flush()
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case map[string]any, []any:
		raw, _ := json.Marshal(val)
		return string(raw)
	default:
		return fmt.Sprint(val)
	}
}

func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
