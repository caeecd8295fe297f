package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/go-sponsor-gate/auth"
	"github.com/jrsteele09/go-sponsor-gate/creators"
	"github.com/jrsteele09/go-sponsor-gate/github"
	"github.com/spf13/cobra"
)

// accessTokenEnvVar lets scripts pass the credential without it reaching the
// process arguments. When unset the token is read from stdin.
const accessTokenEnvVar = "CREATOR_ACCESS_TOKEN"

// Viewer resolves the account a credential belongs to.
type Viewer interface {
	Viewer(ctx context.Context, accessToken string) (*github.User, error)
}

type dependencies struct {
	repo     creators.Repo
	oracle   auth.SponsorOracle
	platform Viewer
	close    func()
}

type opener func(ctx context.Context) (*dependencies, error)

func newRootCommand(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "creatorctl",
		Short:         "Manage creators registered with the sponsor gate",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newPutCommand(open),
		newShowCommand(open),
		newDeleteCommand(open),
		newCheckCommand(open),
	)
	return root
}

// withDeps opens the dependencies for the lifetime of one command.
func withDeps(cmd *cobra.Command, open opener, fn func(ctx context.Context, d *dependencies) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := open(ctx)
	if err != nil {
		return err
	}
	if d.close != nil {
		defer d.close()
	}
	return fn(ctx, d)
}

func newPutCommand(open opener) *cobra.Command {
	var (
		name       string
		skipVerify bool
	)
	cmd := &cobra.Command{
		Use:   "put <creator-id>",
		Short: "Register a creator or rotate their access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accessToken, err := readAccessToken(cmd)
			if err != nil {
				return err
			}
			return withDeps(cmd, open, func(ctx context.Context, d *dependencies) error {
				creatorID := creators.NormalizeID(args[0])
				if !skipVerify {
					user, err := d.platform.Viewer(ctx, accessToken)
					if err != nil {
						return fmt.Errorf("verifying access token: %w", err)
					}
					if !strings.EqualFold(user.Login, creatorID) {
						return fmt.Errorf("access token belongs to %q, not %q", user.Login, creatorID)
					}
					if name == "" {
						name = user.Name
					}
				}
				if err := d.repo.Upsert(ctx, &creators.Creator{ID: creatorID, Name: name, AccessToken: accessToken}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", creatorID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the platform profile name)")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "store the token without checking it against the platform")
	return cmd
}

func newShowCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <creator-id>",
		Short: "Print a registered creator (never the token)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(ctx context.Context, d *dependencies) error {
				c, err := d.repo.Get(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			})
		},
	}
}

func newDeleteCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <creator-id>",
		Short: "Remove a creator; their sponsors lose access at the next sign-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(ctx context.Context, d *dependencies) error {
				if err := d.repo.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", creators.NormalizeID(args[0]))
				return nil
			})
		},
	}
}

func newCheckCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "check <creator-id> <visitor-login>",
		Short: "Ask whether a visitor currently sponsors a creator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(ctx context.Context, d *dependencies) error {
				credential, err := d.repo.AccessCredential(ctx, args[0])
				if err != nil {
					return err
				}
				ok, err := d.oracle.IsSponsor(ctx, credential, args[1])
				if err != nil {
					return err
				}
				verdict := "is not"
				if ok {
					verdict = "is"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s a sponsor of %s\n", args[1], verdict, creators.NormalizeID(args[0]))
				return nil
			})
		},
	}
}

func readAccessToken(cmd *cobra.Command) (string, error) {
	if v := strings.TrimSpace(os.Getenv(accessTokenEnvVar)); v != "" {
		return v, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading access token from stdin: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("an access token is required on stdin or in " + accessTokenEnvVar)
	}
	return token, nil
}
