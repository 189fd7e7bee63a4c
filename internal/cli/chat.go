package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/solace/internal/domain"
	"github.com/xiaot623/solace/internal/protocol"
)

type chatOptions struct {
	addr      string
	ownerID   string
	emotion   string
	intensity int
	retries   int
	logLevel  string
}

func NewChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a session and talk to it from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(opts.logLevel, "console"); err != nil {
				return err
			}
			return runChat(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "http://localhost:8080", "Gateway base URL")
	cmd.Flags().StringVar(&opts.ownerID, "owner", "", "Owner (user) id")
	cmd.Flags().StringVar(&opts.emotion, "emotion", "anxiety", "Primary emotion")
	cmd.Flags().IntVar(&opts.intensity, "intensity", 5, "Emotion intensity (1-10)")
	cmd.Flags().IntVar(&opts.retries, "retries", 3, "Retries for command calls")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runChat(ctx context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	api := newAPIClient(opts.addr, opts.retries)
	started, err := api.startSession(ctx, &domain.StartRequest{
		OwnerID:   opts.ownerID,
		Emotion:   opts.emotion,
		Intensity: opts.intensity,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Fprintf(out, "Session %s (%s)\n", started.SessionID, started.TherapeuticContext.PrimaryConcern)
	for _, technique := range started.TherapeuticContext.RecommendedTechniques {
		fmt.Fprintf(out, "  - %s\n", technique)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, started.ConnectionEndpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", started.ConnectionEndpoint, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printFrames(conn, out)
	}()

	fmt.Fprintln(out, "\nType a message and press Enter to send.")
	fmt.Fprintln(out, "Commands: /end to finish the session, /quit to leave without ending")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			switch input {
			case "":
				continue
			case "/quit":
				return nil
			case "/end":
				resp, err := api.endSession(ctx, started.SessionID)
				if err != nil {
					return fmt.Errorf("end session: %w", err)
				}
				fmt.Fprintf(out, "Session %s: %d turns, saved=%t\n", resp.Status, resp.TurnCount, resp.Saved)
				<-done
				return nil
			}
			frame := protocol.Frame{Type: protocol.TypeText, Text: input}
			data, err := protocol.Encode(frame)
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

// printFrames writes server frames to out until the connection closes.
func printFrames(conn *websocket.Conn, out io.Writer) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(out, "connection closed: %v\n", err)
			}
			return
		}

		f, err := protocol.Decode(data)
		if err != nil {
			fmt.Fprintf(out, "unreadable frame: %s\n", data)
			continue
		}
		switch f.Type {
		case protocol.TypeConnected:
			fmt.Fprintln(out, "[connected]")
		case protocol.TypeResponse:
			fmt.Fprint(out, f.Text)
			if f.TurnComplete {
				fmt.Fprintln(out)
			}
		case protocol.TypeError:
			fmt.Fprintf(out, "[error %s] %s\n", f.Code, f.Message)
		case protocol.TypeEnded:
			saved := f.Saved != nil && *f.Saved
			fmt.Fprintf(out, "[ended] record=%s saved=%t\n", f.RecordID, saved)
		default:
			formatted, _ := json.MarshalIndent(f, "", "  ")
			fmt.Fprintf(out, "[%s]\n%s\n", f.Type, formatted)
		}
	}
}
