package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holon-run/talkd/pkg/github"
	"github.com/holon-run/talkd/pkg/preflight"
	"github.com/holon-run/talkd/pkg/question"
)

var (
	commentID int64
	githubURL string
)

var understandCmd = &cobra.Command{
	Use:   "understand <owner/repo#issue | comment URL>",
	Short: "Interpret one issue comment and print the resulting request",
	Long: `Fetch an issue comment, acknowledge it with a reaction and run it through
the question chain. The request is printed as YAML, or "empty" when the
comment holds no command. Refusals (an outdated release tag, for example)
are posted back to the issue.

Examples:
  talkd understand yegor256/rultor#1 --comment 123456
  talkd understand https://github.com/yegor256/rultor/issues/1#issuecomment-123456`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRef(args[0])
		if err != nil {
			return err
		}
		id := commentID
		if id == 0 {
			id = ref.CommentID
		}
		if id == 0 {
			return fmt.Errorf("no comment given: use --comment or an #issuecomment-N URL")
		}

		if err := runPreflight(cmd, preflight.Config{
			GitHubToken:      cfg.GitHub.Token,
			CheckGitHubToken: true,
		}); err != nil {
			return err
		}

		baseURL := cfg.GitHub.BaseURL
		if githubURL != "" {
			baseURL = githubURL
		}
		client, err := github.NewClient(cfg.GitHub.Token, github.WithBaseURL(baseURL))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c, err := client.GetIssueComment(ctx, ref.Owner, ref.Repo, id)
		if err != nil {
			return err
		}
		comment := question.FromGitHub(ref.Owner, ref.Repo, c)
		if comment.Issue == 0 {
			comment.Issue = ref.Number
		}
		home, err := url.Parse(c.URL)
		if err != nil || c.URL == "" {
			home = &url.URL{Scheme: "https", Host: "github.com", Path: fmt.Sprintf("/%s/issues/%d", ref.Coordinates(), comment.Issue)}
		}

		req, err := question.Chain(client).Understand(ctx, comment, home)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if req.IsEmpty() {
			fmt.Fprintln(out, "empty")
			return nil
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(req); err != nil {
			return fmt.Errorf("failed to print request: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	understandCmd.Flags().Int64Var(&commentID, "comment", 0, "Comment id")
	understandCmd.Flags().StringVar(&githubURL, "github-url", "", "GitHub API base URL (overrides github.base_url)")
	rootCmd.AddCommand(understandCmd)
}
