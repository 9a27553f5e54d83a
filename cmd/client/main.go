package main

import (
	"bufio"
	"context"
	"dm-lab/domain"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL    string        `envconfig:"DM_SERVER_URL" default:"http://localhost:8080"`
	Token        string        `envconfig:"DM_TOKEN" required:"true"`
	SelfID       int64         `envconfig:"DM_SELF_ID" required:"true"`
	PeerID       int64         `envconfig:"DM_PEER_ID" required:"true"`
	PollInterval time.Duration `envconfig:"DM_POLL_INTERVAL" default:"1s"`
	// DM_COLOURS enables colorized output
	Colours  bool   `envconfig:"DM_COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run prints the conversation history, then polls for new messages while sending every stdin line.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.SelfID == config.PeerID {
		return exitConfig, fmt.Errorf("config error: DM_SELF_ID and DM_PEER_ID must differ")
	}
	if !config.Colours {
		color.Disable()
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &chatClient{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: config.ServerURL,
		token:   config.Token,
		self:    domain.UserID(config.SelfID),
		peer:    domain.UserID(config.PeerID),
	}

	history, err := client.history(ctx)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not load conversation: %w", err)
	}
	for _, m := range history {
		printMessage(client.self, m)
	}
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf(">>> Chatting with %d (Ctrl+C to quit)", config.PeerID)))

	lines := make(chan string)
	go readLines(ctx, os.Stdin, lines)

	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Client stopped")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if _, err := client.send(ctx, line); err != nil {
				fmt.Println(color.New(color.FgRed).Render("not sent: " + err.Error()))
			}
		case <-ticker.C:
			messages, err := client.poll(ctx)
			if err != nil {
				log.Warn("Poll failed", "error", err)
				continue
			}
			for _, m := range messages {
				printMessage(client.self, m)
			}
		}
	}
}

func readLines(ctx context.Context, in *os.File, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
}

func printMessage(self domain.UserID, m domain.Message) {
	at := m.CreatedAt.Local().Format("15:04:05")
	if m.SenderID == self {
		fmt.Printf("%s %s %s\n", at, color.New(color.FgCyan).Render("me:"), m.Body)
		return
	}
	fmt.Printf("%s %s %s\n", at, color.New(color.FgMagenta).Render(m.SenderID.String()+":"), m.Body)
}
