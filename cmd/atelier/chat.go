package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/atelierhq/atelier/internal/llm"
	"github.com/atelierhq/atelier/internal/studio"
	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/session"
)

var chatSlug string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive assistant chat for a project",
	Long:  `Open an interactive assistant conversation against a project session. History persists under the configured storage backend, so the conversation continues where it left off.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSlug, "slug", "local", "project session slug")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	assistantStore, err := newSessionStore(cfg, "assistant")
	if err != nil {
		return fmt.Errorf("assistant store: %w", err)
	}
	defer func() { _ = assistantStore.Close() }()

	resolve := func() (*llm.Gateway, error) {
		return llm.Resolve(llm.Settings{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey(),
			Temperature: cfg.LLM.TemperatureValue(),
		})
	}
	svc := studio.NewService(assistantStore, session.NewMemoryStore(), resolve)

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	fmt.Printf("atelier assistant (session %q, provider %s). Type 'exit' to quit.\n", chatSlug, cfg.LLM.Provider)

	ctx := context.Background()
	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			// io.EOF on ctrl-d
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)

		reply, _, err := svc.AssistantChat(ctx, chatSlug, "", input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", reply)
	}
}
