package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TemplatesCmd lists stored templates or shows a single full definition.
type TemplatesCmd struct {
	ID  string `arg:"" optional:"" help:"Template id to show in full."`
	Dir string `short:"d" help:"Templates directory (overrides config)." type:"path"`
}

func (c *TemplatesCmd) Run(cli *CLI) error {
	ctx := context.Background()

	store, err := openStore(ctx, cli.Config, c.Dir)
	if err != nil {
		return err
	}

	if c.ID == "" {
		defs := store.List()
		if len(defs) == 0 {
			fmt.Println("No templates loaded.")
			return nil
		}
		fmt.Printf("Templates (%d):\n", len(defs))
		for _, def := range defs {
			desc := def.Description
			if desc == "" {
				desc = "(no description)"
			}
			fmt.Printf("  - %s: %s\n", def.TemplateID, desc)
		}
		return nil
	}

	def, err := store.Get(c.ID)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(def); err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	return encoder.Close()
}
