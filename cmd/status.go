package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hireloop/interview-cli/internal/interview"
	"github.com/hireloop/interview-cli/internal/logger"
	"github.com/hireloop/interview-cli/internal/session"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-code>",
	Short: "Show the saved and remote state of an interview session",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		status(args[0])
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func status(sessionCode string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := session.NewStore(viper.GetString("state-dir"))
	if err != nil {
		logger.Fatal("opening session state directory", zap.Error(err))
	}

	switch snap, err := store.Load(sessionCode, session.DefaultFreshness); {
	case err == nil:
		fmt.Printf("Saved session: %q (saved %s ago, %s left)\n",
			snap.CurrentQuestion,
			time.Since(snap.SavedAt).Round(time.Second),
			time.Duration(snap.RemainingSeconds)*time.Second,
		)
	case errors.Is(err, session.ErrNoSnapshot):
		fmt.Println("No resumable saved session.")
	default:
		logger.Warn("reading saved session", zap.Error(err))
	}

	baseURL := resolveBaseURL(config)
	if baseURL == "" {
		logger.Info("no api base url configured, skipping the remote lookup")
		return
	}

	token, err := resolveToken(config)
	if err != nil {
		logger.Fatal("loading interview api token", zap.Error(err))
	}

	client := interview.New(ctx, logger, baseURL, token)

	info, err := client.Info(sessionCode)
	if err != nil {
		logger.Fatal("fetching remote session state", zap.Error(err))
	}

	fmt.Printf("Remote status: %s\n", info.Status)
	if info.Status == interview.StatusActive {
		if info.CurrentTopic != "" {
			fmt.Printf("Current topic: %s\n", info.CurrentTopic)
		}
		if info.CurrentQuestion != "" {
			fmt.Printf("Current question: %s\n", info.CurrentQuestion)
		}
		if p := info.Progress; p != nil && p.MaxQuestions > 0 {
			fmt.Printf("Progress: %d of %d questions\n", p.QuestionsAsked, p.MaxQuestions)
		}
	}
}
