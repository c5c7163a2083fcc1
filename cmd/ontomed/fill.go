package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kadirpekel/ontomed/pkg/template"
)

// FillCmd fills a stored template with parameters and prints the result.
type FillCmd struct {
	Template string   `arg:"" help:"Template id to fill."`
	Params   []string `arg:"" optional:"" help:"Parameters as key=value pairs."`
	Dir      string   `short:"d" help:"Templates directory (overrides config)." type:"path"`
}

func (c *FillCmd) Run(cli *CLI) error {
	ctx := context.Background()

	store, err := openStore(ctx, cli.Config, c.Dir)
	if err != nil {
		return err
	}

	params := make(map[string]any, len(c.Params))
	for _, pair := range c.Params {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid parameter %q (expected key=value)", pair)
		}
		params[key] = value
	}

	filler := template.NewFiller(store)
	filled, err := filler.Fill(c.Template, params)
	if err != nil {
		return err
	}

	if missing, err := filler.Missing(c.Template, params); err == nil && len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unresolved placeholders: %s\n", strings.Join(missing, ", "))
	}

	fmt.Print(filled)
	if !strings.HasSuffix(filled, "\n") {
		fmt.Println()
	}
	return nil
}
