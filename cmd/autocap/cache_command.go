package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"autocap/internal/respcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the response cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store respcache.Store, backend string) error {
				keys, err := store.Keys(cmd.Context())
				if err != nil {
					return err
				}
				keys = slices.DeleteFunc(keys, func(k string) bool {
					return !strings.HasPrefix(k, prefix)
				})
				slices.Sort(keys)

				out := cmd.OutOrStdout()
				if len(keys) == 0 {
					fmt.Fprintf(out, "No cached responses (%s backend)\n", backend)
					return nil
				}
				fmt.Fprintf(out, "Cached responses (%s backend): %d\n", backend, len(keys))
				for _, k := range keys {
					fmt.Fprintf(out, "  - %s\n", k)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list keys with this prefix (e.g. retrieve_async_asr_result__)")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print a cached response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			return withStore(ctx, func(store respcache.Store, _ string) error {
				data, err := store.Get(cmd.Context(), key)
				if errors.Is(err, respcache.ErrNotFound) {
					return fmt.Errorf("no cached response for %q", key)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, err = out.Write(data)
				if err == nil && !strings.HasSuffix(string(data), "\n") {
					fmt.Fprintln(out)
				}
				return err
			})
		},
	}
}

func withStore(ctx *commandContext, fn func(respcache.Store, string) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	store, err := respcache.OpenStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}
	defer store.Close()
	return fn(store, cfg.Cache.Backend)
}
