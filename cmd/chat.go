package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantalpha/advisor-cli/internal/model"
)

var chatConversationID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the AI portfolio advisor",
	Long:  "Interactive advisory chat grounded in the live portfolio snapshot. Replies stream to stdout. Pass --conversation to resume a saved session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Anthropic.Key == "" {
			return eris.New("ADVISOR_ANTHROPIC_KEY is required for chat")
		}

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		conv, err := resumeConversation(cmd, env)
		if err != nil {
			return err
		}

		for _, m := range conv.Messages {
			printTurn(m)
		}

		fmt.Printf("Session %s. Type a question, or /quit to exit.\n", conv.ID)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("\nYou: ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				break
			}

			fmt.Print("\nAdvisor: ")
			result, err := env.Service.Chat(ctx, conv.ID, line, func(chunk string) {
				fmt.Print(chunk)
			})
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				zap.L().Error("chat turn failed", zap.Error(err))
				fmt.Println("\nSomething went wrong generating a reply. Try again.")
				continue
			}
			fmt.Println()

			if result.Degraded {
				fmt.Println("(portfolio data unavailable; answer is general guidance)")
			}
		}

		return scanner.Err()
	},
}

func resumeConversation(cmd *cobra.Command, env *advisorEnv) (*model.Conversation, error) {
	if chatConversationID == "" {
		return env.Service.NewConversation(cmd.Context())
	}
	conv, err := env.Service.Store().GetConversation(cmd.Context(), chatConversationID)
	if err != nil {
		return nil, eris.Wrapf(err, "resume conversation %s", chatConversationID)
	}
	return conv, nil
}

func printTurn(m model.ChatMessage) {
	switch m.Role {
	case model.RoleUser:
		fmt.Printf("\nYou: %s\n", m.Content)
	case model.RoleAssistant:
		fmt.Printf("\nAdvisor: %s\n", m.Content)
	}
}

func init() {
	chatCmd.Flags().StringVar(&chatConversationID, "conversation", "", "conversation ID to resume")
	rootCmd.AddCommand(chatCmd)
}
