package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/topocache"
)

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a value; valid JSON is stored as JSON, anything else as a string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, c topocache.Cache[string, any]) error {
				return c.Put(ctx, args[0], parseValue(args[1]))
			})
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key, or (nil)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, c topocache.Cache[string, any]) error {
				v, ok, err := c.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
					return nil
				}
				b, err := json.Marshal(v)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			})
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Aliases: []string{"rm", "del"},
		Short:   "Delete key; deleting an absent key succeeds",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, c topocache.Cache[string, any]) error {
				return c.Remove(ctx, args[0])
			})
		},
	}
}

func containsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contains <key>",
		Short: "Print true when key is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, c topocache.Cache[string, any]) error {
				ok, err := c.ContainsKey(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Flush the whole logical database (every shard in cluster mode)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("clear flushes every key in the database, not just this cache's; rerun with --yes")
			}
			return withCache(cmd, func(ctx context.Context, c topocache.Cache[string, any]) error {
				return c.Clear(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the flush")
	return cmd
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
