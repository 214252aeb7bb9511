package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/deviceauth"
)

// NewPINCommand groups the device PIN commands.
func NewPINCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "device PIN authentication",
	}

	set := &cobra.Command{
		Use:   "set PIN",
		Short: "set the device PIN (requires a session once a PIN exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if err := a.auth.SetPIN(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN set")
			return nil
		},
	}

	login := &cobra.Command{
		Use:   "login PIN",
		Short: "start a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, err := a.auth.Login(ctx, args[0])
			if errors.Is(err, deviceauth.ErrInvalidPIN) {
				left, _ := a.auth.RemainingAttempts(ctx)
				return fmt.Errorf("%w (%d attempts left)", err, left)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in until %s\n", sess.ExpiresAt.Format("2006-01-02 15:04"))
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "end the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.auth.Logout(ctx)
		},
	}

	answers := &cobra.Command{
		Use:   "answers QUESTION=ANSWER...",
		Short: "set the security answers used to reset the PIN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parsed, err := parseAnswers(args)
			if err != nil {
				return err
			}
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			if err := a.auth.SetSecurityAnswers(ctx, parsed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "security answers saved")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset NEWPIN QUESTION=ANSWER...",
		Short: "reset a forgotten PIN with the security answers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parsed, err := parseAnswers(args[1:])
			if err != nil {
				return err
			}
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.auth.ResetPIN(ctx, parsed, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN reset")
			return nil
		},
	}

	cmd.AddCommand(set, login, logout, answers, reset)
	return cmd
}

func parseAnswers(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		q, ans, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("expected QUESTION=ANSWER, got %q", arg)
		}
		out[strings.TrimSpace(q)] = ans
	}
	return out, nil
}
