package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"qrlink/internal/engine/links"
	"qrlink/internal/platform/auth"
)

func newShortenCmd(root *rootOptions) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "shorten <url>",
		Short: "Create or look up the short link for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := root.openLinks(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			link, created, err := svc.CreateOrGet(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if baseURL == "" {
				baseURL = cfg.Server.BaseURL
			}
			fmt.Fprintln(cmd.OutOrStdout(), links.ShortURL(baseURL, link.Code))
			if !created {
				fmt.Fprintln(cmd.ErrOrStderr(), "already shortened")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public origin for the printed link (default server.base_url)")
	return cmd
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <code>",
		Short: "Print the URL behind a short code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := root.openLinks(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			url, err := svc.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List stored short links, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := root.openLinks(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			all, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				out := make(map[string]*links.Link, len(all))
				for _, l := range all {
					out[l.Code] = l
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tCREATED\tURL")
			for _, l := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.Code, time.Unix(l.CreatedAt, 0).UTC().Format(time.DateTime), l.URL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the store snapshot format")
	return cmd
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <admin-key>",
		Short: "Print a bcrypt hash for security.admin_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
