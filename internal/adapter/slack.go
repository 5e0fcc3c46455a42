package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
)

type SlackAdapter struct {
	signingSecret string
	botToken      string
	handler       Handler
	server        *http.Server
	port          int
	client        *slack.Client
}

func NewSlackAdapter(port int, signingSecret, botToken string, handler Handler) *SlackAdapter {
	if signingSecret == "" {
		signingSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
	if botToken == "" {
		botToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	return &SlackAdapter{
		signingSecret: signingSecret,
		botToken:      botToken,
		handler:       handler,
		port:          port,
		client:        slack.New(botToken),
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

func (s *SlackAdapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", s.handleEvents)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		slog.Info("Slack adapter listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Slack server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	return nil
}

func (s *SlackAdapter) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *SlackAdapter) Send(ctx context.Context, senderID, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, senderID, slack.MsgOptionText(text, false))
	if err != nil {
		return errors.Wrap(err, "send slack message")
	}
	slog.Debug("Slack message sent", "channel", senderID)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	if s.server == nil {
		return errors.ExternalService("slack server not started")
	}
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return errors.ExternalService("slack connection failed")
	}
	return nil
}

func (s *SlackAdapter) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if event.Type == slackevents.URLVerification {
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	}

	if event.Type == slackevents.CallbackEvent {
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			// Ignore bot messages, including our own replies.
			if ev.BotID != "" || s.handler == nil {
				w.WriteHeader(http.StatusOK)
				return
			}

			in := model.IncomingMessage{
				Channel:    "slack",
				SenderID:   ev.Channel,
				SenderName: ev.User,
				Text:       ev.Text,
				Timestamp:  time.Now(),
				Metadata:   map[string]string{"user_id": ev.User, "ts": ev.TimeStamp},
			}

			reply := s.handler(r.Context(), in)
			if reply.Text != "" {
				if err := s.Send(r.Context(), ev.Channel, reply.Text); err != nil {
					slog.Error("Failed to send slack reply", "channel", ev.Channel, "error", err)
				}
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}
