package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fintrans/app"
	"fintrans/domain"
	"fintrans/shared"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive transfer REPL",
	Long: `Runs the transfer dialogue in the terminal, round-tripping the
context between turns exactly like an HTTP caller would. Type "quit" to
leave; an abandoned flow needs no cleanup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initRuntime(); err != nil {
			return err
		}
		defer log.Sync()

		fmt.Printf("Transfer chat for %s. 송금 요청을 입력해주세요. (quit로 종료)\n", chatUser)

		var tctx *domain.TransferContext
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				break
			}

			resp := transferService.Advance(context.Background(), app.Request{
				RawText: line,
				UserID:  chatUser,
				Context: tctx,
			})

			fmt.Println(resp.Message)
			if resp.UIHint == app.UIHintConfirmButtons {
				fmt.Println("  (y = 승인, n = 거절)")
			}

			if resp.Status.Terminal() {
				tctx = nil
				if resp.Status == shared.StatusSuccess {
					fmt.Println("---")
				}
				continue
			}
			tctx = resp.Context
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "user_kr", "username to act as")
	rootCmd.AddCommand(chatCmd)
}
