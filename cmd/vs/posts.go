package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPostsCmd() *cobra.Command {
	var (
		niche    string
		platform string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List trending posts without analyzing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, raw, err := newAPIClient(serverURL).Posts(cmd.Context(), niche, platform, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderPosts(out.Posts, out.Demo, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&niche, "niche", "", "content niche")
	cmd.Flags().StringVar(&platform, "platform", "", "platform filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of posts (default 5)")
	_ = cmd.MarkFlagRequired("niche")
	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show configured AI providers in fallback order",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, raw, err := newAPIClient(serverURL).Providers(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			configured := make(map[string]bool, len(out.Providers))
			for _, p := range out.Providers {
				configured[p] = true
			}
			for i, p := range out.Priority {
				status := MutedText.Render("not configured")
				if configured[p] {
					status = OKText.Render("ready")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %-8s %s\n", i+1, p, status)
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <post-id>",
		Short: "Show stored analyses for a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, raw, err := newAPIClient(serverURL).History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHistory(out.Analyses, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum analyses to show")
	return cmd
}
