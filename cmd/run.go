package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/interview-cli/internal/audio"
	"github.com/hireloop/interview-cli/internal/interview"
	"github.com/hireloop/interview-cli/internal/logger"
	"github.com/hireloop/interview-cli/internal/secrets"
	"github.com/hireloop/interview-cli/internal/session"
	"github.com/hireloop/interview-cli/internal/transport"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes          = "Yes"
	PromptNo           = "No"
	PromptAnswer       = "Answer the current question"
	PromptShowProgress = "Show progress"
	PromptEndInterview = "End the interview early"
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAnswer, PromptShowProgress, PromptEndInterview},
}

var runCmd = &cobra.Command{
	Use:   "run <session-code>",
	Short: "Take the automated interview for the given session code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("text", "t", false, "answer by typing instead of recording audio")
}

// run is the main command for the cli.
func run(cmd *cobra.Command, sessionCode string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interview-cli", zap.String("version", version), zap.String("session_id", sessionCode))

	baseURL := resolveBaseURL(config)
	if baseURL == "" {
		logger.Fatal("interview api base url is required",
			zap.String("hint", "set INTERVIEW_API_URL or the 'api.base-url' key in the configuration file"),
		)
	}

	token, err := resolveToken(config)
	if err != nil {
		logger.Fatal("loading interview api token", zap.Error(err))
	}

	client := interview.New(ctx, logger, baseURL, token)
	if config != nil && config.API != nil && config.API.UserAgent != "" {
		client.UserAgent = config.API.UserAgent
	}

	policy := retryPolicy(config)

	logger.Info("checking interview system availability")
	if err := client.WaitReady(ctx, policy); err != nil {
		logger.Fatal("interview system is unavailable",
			zap.Error(err),
			zap.String("hint", "try again in a few minutes"),
		)
	}

	store, err := session.NewStore(viper.GetString("state-dir"))
	if err != nil {
		logger.Fatal("opening session state directory", zap.Error(err))
	}

	ctrl := session.New(sessionCode, client, store, policy, logger)
	defer ctrl.Close()

	go renderEvents(ctrl)

	if ws := buildWebSocket(config, logger); ws != nil {
		if err := ws.Connect(ctx); err != nil {
			logger.Warn("websocket channel unavailable, continuing without it", zap.Error(err))
		} else {
			defer ws.Close()
			go drainWebSocket(ws, logger)
		}
	}

	switch err := ctrl.Initialize(ctx); {
	case err == nil:
	case errors.Is(err, session.ErrNotStarted):
		if !confirm("The interview has not started yet. Start it now?") {
			logger.Info("exiting", zap.String("reason", "candidate declined to start"))
			return
		}
		if err := ctrl.Begin(ctx); err != nil {
			logger.Fatal("starting the interview", zap.Error(err))
		}
	case errors.Is(err, session.ErrAlreadyCompleted):
		logger.Info("this interview is already completed")
		return
	default:
		logger.Fatal("loading the interview", zap.Error(err))
	}

	textMode := cmd.Flag("text").Value.String() == "true"

	var audioCtx audio.Context
	if !textMode {
		audioCtx, err = audio.NewContext()
		if err != nil {
			logger.Warn("audio backend unavailable, switching to text answers", zap.Error(err))
			textMode = true
		} else {
			defer audioCtx.Close()
		}
	}

	var recMu sync.Mutex
	var activeRec *audio.Recorder

	ctrl.StartCountdown(func() {
		recMu.Lock()
		rec := activeRec
		recMu.Unlock()

		if rec != nil && rec.IsRecording() {
			fmt.Println("\nTime is up, submitting your recording.")
			wav, err := rec.Stop()
			if err == nil && len(wav) > audio.WAVHeaderSize {
				if err := ctrl.SubmitAudio(ctx, wav); err != nil {
					logger.Warn("auto-submit failed", zap.Error(err))
				}
				return
			}
		}

		fmt.Println("\nTime is up.")
		if err := ctrl.EndEarly(ctx); err != nil {
			logger.Warn("ending expired interview", zap.Error(err))
		}
	})

	for ctrl.State() != session.StateComplete {
		if ctrl.State() == session.StateErrored {
			if !confirm("Something went wrong. Try again?") {
				logger.Info("exiting", zap.String("reason", "candidate gave up after an error"))
				return
			}
			ctrl.ClearError()
		}

		if err := handleAction(ctx, ctrl, audioCtx, config, textMode, &recMu, &activeRec, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Warn("answer attempt failed", zap.Error(err))
		}
	}

	printResults(ctrl)
}

func handleAction(ctx context.Context, ctrl *session.Controller, audioCtx audio.Context, config *Config, textMode bool, recMu *sync.Mutex, activeRec **audio.Recorder, logger *zap.Logger) error {
	_, action, err := actionPrompt.Run()
	if err != nil {
		return errExit
	}

	switch action {
	case PromptAnswer:
		if ctrl.State() == session.StateComplete {
			return nil
		}
		if textMode || ctrl.UseTextInput() || audioCtx == nil {
			return answerWithText(ctx, ctrl)
		}
		if err := answerWithAudio(ctx, ctrl, audioCtx, config, recMu, activeRec); err != nil {
			logger.Warn("recording failed, falling back to text input", zap.Error(err))
			return answerWithText(ctx, ctrl)
		}
		return nil
	case PromptShowProgress:
		printProgress(ctrl)
		return nil
	case PromptEndInterview:
		if !confirm("End the interview early? This cannot be undone.") {
			return nil
		}
		return ctrl.EndEarly(ctx)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func answerWithAudio(ctx context.Context, ctrl *session.Controller, audioCtx audio.Context, config *Config, recMu *sync.Mutex, activeRec **audio.Recorder) error {
	rec := audio.NewRecorder(audioCtx, audioConfig(config), nil)

	recMu.Lock()
	*activeRec = rec
	recMu.Unlock()

	defer func() {
		recMu.Lock()
		*activeRec = nil
		recMu.Unlock()
		rec.Release()
	}()

	pause := promptui.Prompt{Label: "Press Enter to start recording"}
	if _, err := pause.Run(); err != nil {
		return errExit
	}

	if err := rec.Start(); err != nil {
		return err
	}

	pause = promptui.Prompt{Label: "Recording... press Enter to stop"}
	if _, err := pause.Run(); err != nil {
		return errExit
	}

	wav, err := rec.Stop()
	if err != nil {
		return err
	}
	if len(wav) <= audio.WAVHeaderSize {
		return errors.New("nothing was recorded")
	}

	// Submission failures are rendered through the event queue; the loop
	// decides what to do next based on the controller state.
	if err := ctrl.SubmitAudio(ctx, wav); err != nil && errors.Is(err, session.ErrSubmissionInFlight) {
		return err
	}

	return nil
}

func answerWithText(ctx context.Context, ctrl *session.Controller) error {
	input := promptui.Prompt{
		Label: "Your answer",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	text, err := input.Run()
	if err != nil {
		return errExit
	}

	if err := ctrl.SubmitText(ctx, text); err != nil && errors.Is(err, session.ErrSubmissionInFlight) {
		return err
	}

	return nil
}

func renderEvents(ctrl *session.Controller) {
	for ev := range ctrl.Events() {
		switch ev.Kind {
		case session.EventQuestion:
			topic := ctrl.Topic()
			if topic != "" {
				fmt.Printf("\n[%s] %s\n", topic, ev.Message)
			} else {
				fmt.Printf("\n%s\n", ev.Message)
			}
		case session.EventTranscription:
			fmt.Printf("\nYou said: %s\n", ev.Message)
		case session.EventFeedback:
			fmt.Printf("\nInterviewer: %s\n", ev.Message)
		case session.EventError:
			fmt.Printf("\nProblem: %s\n", ev.Message)
		case session.EventCompleted:
			fmt.Printf("\n%s\n", ev.Message)
		case session.EventNotice:
			fmt.Printf("\n%s\n", ev.Message)
		}
	}
}

func printProgress(ctrl *session.Controller) {
	p := ctrl.Progress()
	remaining := ctrl.RemainingSeconds()

	if p != nil && p.MaxQuestions > 0 {
		fmt.Printf("Questions: %d of %d\n", p.QuestionsAsked, p.MaxQuestions)
	}
	fmt.Printf("Time remaining: %s\n", (time.Duration(remaining) * time.Second).String())
}

func printResults(ctrl *session.Controller) {
	fmt.Println("\nThe interview is complete. Thank you!")

	if evaluation, err := interview.DecodeEvaluation(ctrl.Evaluation()); err == nil && evaluation != nil {
		if evaluation.Summary != "" {
			fmt.Printf("\nSummary: %s\n", evaluation.Summary)
		}
		if len(evaluation.Strengths) > 0 {
			fmt.Printf("Strengths: %s\n", strings.Join(evaluation.Strengths, ", "))
		}
		if len(evaluation.Weaknesses) > 0 {
			fmt.Printf("Areas to improve: %s\n", strings.Join(evaluation.Weaknesses, ", "))
		}
		if evaluation.Recommendation != "" {
			fmt.Printf("Recommendation: %s\n", evaluation.Recommendation)
		}
	}

	scores := ctrl.Scores()
	if len(scores) > 0 {
		fmt.Println("Scores:")
		for name, score := range scores {
			fmt.Printf("  %s: %.1f\n", name, score)
		}
	}
}

func confirm(question string) bool {
	prompt := promptui.Select{
		Label: question,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	return err == nil && answer == PromptYes
}

func resolveBaseURL(config *Config) string {
	if config != nil && config.API != nil && config.API.BaseURL != "" {
		return strings.TrimSpace(config.API.BaseURL)
	}
	return strings.TrimSpace(viper.GetString("api.base-url"))
}

func resolveToken(config *Config) (string, error) {
	tokenFile := ""
	if config != nil && config.API != nil {
		tokenFile = strings.TrimSpace(config.API.TokenFile)
	}
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("api.token-file"))
	}

	return secrets.Load(secrets.Source{
		Name:     "interview api token",
		File:     tokenFile,
		Env:      "INTERVIEW_TOKEN",
		Optional: true,
	})
}

func retryPolicy(config *Config) transport.Policy {
	policy := transport.DefaultPolicy()
	if config == nil || config.Retry == nil {
		return policy
	}

	if config.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = config.Retry.MaxAttempts
	}
	if config.Retry.InitialDelay > 0 {
		policy.InitialDelay = config.Retry.InitialDelay
	}
	if config.Retry.MaxDelay > 0 {
		policy.MaxDelay = config.Retry.MaxDelay
	}

	return policy
}

func audioConfig(config *Config) audio.CaptureConfig {
	cfg := audio.DefaultConfig()
	if config == nil || config.Audio == nil {
		return cfg
	}

	if config.Audio.SampleRate > 0 {
		cfg.SampleRate = config.Audio.SampleRate
	}
	if config.Audio.Channels > 0 {
		cfg.Channels = config.Audio.Channels
	}

	return cfg
}

// buildWebSocket returns a connected-on-demand transport client when the
// feature flag is on, nil otherwise.
func buildWebSocket(config *Config, logger *zap.Logger) *transport.WSClient {
	enabled := viper.GetBool("websocket.enabled")
	if config != nil && config.WebSocket != nil {
		enabled = enabled || config.WebSocket.Enabled
	}
	if !enabled {
		return nil
	}

	cfg := transport.WSConfig{}
	if config != nil && config.WebSocket != nil {
		cfg.URL = config.WebSocket.URL
		cfg.PingInterval = config.WebSocket.PingInterval
	}
	if cfg.URL == "" {
		logger.Warn("websocket is enabled but no url is configured")
		return nil
	}

	return transport.NewWS(cfg, logger)
}

func drainWebSocket(ws *transport.WSClient, logger *zap.Logger) {
	events, unsubscribe := ws.Subscribe()
	defer unsubscribe()

	for ev := range events {
		if ev.Err != nil {
			logger.Warn("websocket channel lost", zap.Error(ev.Err))
			return
		}
		logger.Debug("websocket message", zap.ByteString("payload", ev.Data))
	}
}
