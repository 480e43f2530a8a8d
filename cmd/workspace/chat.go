package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phoneme/workspace/internal/assistant"
	"github.com/phoneme/workspace/internal/auth"
)

var chatEmail string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to the assistant as a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if chatEmail == "" {
			return fmt.Errorf("--email is required")
		}

		ctx := cmd.Context()
		s, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		u, err := s.GetUserByEmail(ctx, chatEmail)
		if err != nil {
			return err
		}
		if u == nil || !u.Active {
			return fmt.Errorf("no active user with email %s", chatEmail)
		}

		orch, err := buildAssistant(ctx, cfg, s, nil, logger)
		if err != nil {
			return err
		}

		resp, err := orch.Chat(ctx, assistant.Request{
			Message: strings.Join(args, " "),
			Caller:  auth.IdentityFromUser(u).Caller(),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Response)
		fmt.Fprintf(out, "\n[%d rounds, %d tool calls, %d in / %d out tokens]\n",
			resp.Rounds, resp.ToolCalls, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatEmail, "email", "", "Email of the user to chat as")
}
