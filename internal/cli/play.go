package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quiz-app-service/internal/app"
	"quiz-app-service/internal/client"
)

// NewPlayCmd takes a quiz in the terminal against a running API.
func NewPlayCmd() *cobra.Command {
	var (
		apiURL  string
		quizID  string
		name    string
		seconds int
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal and post the score",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if name == "" {
				fmt.Fprint(out, "Your name: ")
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				name = line
			}
			return runPlay(ctx, in, out, client.New(apiURL), quizID, name,
				app.SessionOptions{QuestionSeconds: seconds}, time.Second)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "quiz API base URL")
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	cmd.Flags().StringVar(&name, "name", "", "name shown on the leaderboard")
	cmd.Flags().IntVar(&seconds, "seconds", app.DefaultQuestionSeconds, "seconds per question")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

// runPlay drives a local session: answers come from in as option numbers, the countdown
// runs at interval per second, and the result is posted to the API when the quiz ends.
func runPlay(ctx context.Context, in io.Reader, out io.Writer, api *client.Client, quizID, name string, opts app.SessionOptions, interval time.Duration) error {
	quiz, err := api.GetQuiz(ctx, quizID)
	if err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}

	session := app.NewSession(uuid.NewString(), quiz, api, opts)
	updates, cancel := session.Subscribe()
	defer cancel()

	if _, err := session.Start(name); err != nil {
		return err
	}

	playCtx, stopCountdown := context.WithCancel(ctx)
	defer stopCountdown()
	countdownErr := make(chan error, 1)
	go func() { countdownErr <- app.RunCountdown(playCtx, session, interval) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-playCtx.Done():
				return
			}
		}
	}()

	start := session.Snapshot()
	fmt.Fprintf(out, "%s (%d questions, %ds each)\n", quiz.Title, start.Total, start.Remaining)
	shown := -1
	for {
		select {
		case <-ctx.Done():
			session.Abandon()
			return ctx.Err()

		case err := <-countdownErr:
			if err != nil {
				return err
			}
			countdownErr = nil

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			answer(ctx, out, session, line)

		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			switch snap.State {
			case app.StateInProgress:
				if snap.QuestionIndex != shown {
					shown = snap.QuestionIndex
					printQuestion(out, snap)
				} else if snap.Remaining <= 5 && snap.Selection == nil {
					fmt.Fprintf(out, "  %ds left\n", snap.Remaining)
				}
			case app.StateFinished:
				fmt.Fprintf(out, "Score: %d/%d\n", *snap.Score, snap.Total)
				// finished is only broadcast once the submit returned
				if snap.Result == nil {
					return errors.New("score could not be saved")
				}
				return printLeaderboard(ctx, out, api, quiz.ID)
			}
		}
	}
}

func answer(ctx context.Context, out io.Writer, session *app.Session, line string) {
	n, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintln(out, "  type the number of an option")
		return
	}
	current := session.Snapshot().QuestionIndex
	if _, err := session.Select(current, n-1); err != nil {
		fmt.Fprintf(out, "  %v\n", err)
		return
	}
	if _, err := session.Confirm(ctx, current); err != nil {
		fmt.Fprintf(out, "  %v\n", err)
	}
}

func printQuestion(out io.Writer, snap app.Snapshot) {
	q := snap.Question
	fmt.Fprintf(out, "\n[%d/%d] %s (%s)\n", snap.QuestionIndex+1, snap.Total, q.Statement, q.Difficulty)
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
}

func printLeaderboard(ctx context.Context, out io.Writer, api *client.Client, quizID string) error {
	board, err := api.Leaderboard(ctx, quizID)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	fmt.Fprintln(out, "\nLeaderboard")
	for i, r := range board {
		fmt.Fprintf(out, "%2d. %-30s %d\n", i+1, r.ParticipantName, r.Score)
	}
	return nil
}
