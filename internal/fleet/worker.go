// Package fleet implements §4.H: the fleet manager and its per-team bot
// workers. Grounded on the teacher's internal/channels/telegram.go
// reconnect-with-backoff long-poll loop (NewBotAPI, GetUpdatesChan,
// pollUpdates stall detection via a reset timer), generalized from one
// hand-rolled doubling backoff to github.com/cenkalti/backoff/v4 and from
// a single global allow-list to one bot per team_id, reading its token
// from the team cache instead of a static config value.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kickai/kickai/internal/router"
)

// workerState mirrors the fleet manager's observable lifecycle for one
// team's bot.
type workerState string

const (
	stateStarting workerState = "starting"
	stateRunning  workerState = "running"
	stateStopped  workerState = "stopped"
	stateFailed   workerState = "failed"
)

// stallTimeout mirrors the teacher's 2.5x-long-poll-timeout stall
// detector: tgbotapi's long poll blocks for up to 60s, so anything past
// 150s with zero updates (including empty long-poll returns) means the
// connection is dead rather than merely quiet.
const stallTimeout = 150 * time.Second

// Worker owns one Telegram bot for one team: it polls updates, routes
// each one through the shared message router, and delivers the reply.
// It also implements domain.Sender so it can be injected into the
// communication service for outbound-only delivery (announcements,
// invite notices) outside the request/reply cycle.
type Worker struct {
	teamID string
	token  string
	rt     *router.Router
	logger *slog.Logger

	mu    sync.Mutex
	bot   *tgbotapi.BotAPI
	state workerState

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWorker builds a stopped worker for teamID, bound to token and the
// shared router.
func NewWorker(teamID, token string, rt *router.Router, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		teamID: teamID,
		token:  token,
		rt:     rt,
		logger: logger.With("team_id", teamID),
		state:  stateStarting,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// State reports the worker's current lifecycle state for fleet manager
// bookkeeping.
func (w *Worker) State() workerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s workerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Start blocks, running the reconnect loop, until ctx is canceled or Stop
// is called. A worker that cannot even establish its first connection
// returns an error so the fleet manager can mark the team `failed`
// without blocking startup of the other teams (§4.H: "a start failure
// for one team does not abort others").
func (w *Worker) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(w.token)
	if err != nil {
		w.setState(stateFailed)
		return fmt.Errorf("telegram init failed for team %s: %w", w.teamID, err)
	}
	w.mu.Lock()
	w.bot = bot
	w.mu.Unlock()

	w.logger.Info("bot worker started", "bot_username", bot.Self.UserName)
	w.setState(stateRunning)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // retry forever; fatal escalation happens via consecutive-failure count

	const maxConsecutiveFailures = 10
	consecutiveFailures := 0

	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.setState(stateStopped)
			return nil
		case <-w.stopCh:
			w.setState(stateStopped)
			return nil
		default:
		}

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := bot.GetUpdatesChan(u)

		pollErr := w.pollUpdates(ctx, updates)
		bot.StopReceivingUpdates()

		if pollErr == nil {
			w.setState(stateStopped)
			return nil
		}

		consecutiveFailures++
		if consecutiveFailures >= maxConsecutiveFailures {
			w.setState(stateFailed)
			return fmt.Errorf("team %s: %d consecutive poll failures, giving up: %w", w.teamID, consecutiveFailures, pollErr)
		}

		wait := b.NextBackOff()
		w.logger.Warn("poll disconnected, reconnecting", "error", pollErr, "backoff", wait, "consecutive_failures", consecutiveFailures)
		select {
		case <-ctx.Done():
			w.setState(stateStopped)
			return nil
		case <-w.stopCh:
			w.setState(stateStopped)
			return nil
		case <-time.After(wait):
		}
	}
}

// pollUpdates drains updates until ctx/stop fires, the channel closes, or
// the stall timer expires.
func (w *Worker) pollUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	timer := time.NewTimer(stallTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("update channel closed")
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(stallTimeout)

			if update.Message != nil {
				w.handleMessage(ctx, update.Message)
			}
		case <-timer.C:
			return fmt.Errorf("no updates received for %v (possible disconnect)", stallTimeout)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	routed := router.RoutedMessage{
		TeamID:     w.teamID,
		ChatID:     msg.Chat.ID,
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		Text:       text,
	}
	reply := w.rt.Route(ctx, routed)
	if err := w.send(reply.ChatID, reply.Text, reply.ParseMode); err != nil {
		w.logger.Error("failed to send reply", "chat_id", reply.ChatID, "error", err)
	}
}

func (w *Worker) send(chatID int64, text, parseMode string) error {
	w.mu.Lock()
	bot := w.bot
	w.mu.Unlock()
	if bot == nil {
		return fmt.Errorf("team %s: bot not initialized", w.teamID)
	}
	out := tgbotapi.NewMessage(chatID, text)
	if parseMode != "" {
		out.ParseMode = parseMode
	}
	_, err := bot.Send(out)
	return err
}

// SendText implements domain.Sender, letting the communication service
// deliver announcements and invite notices through this worker's bot
// without going through the request/reply cycle.
func (w *Worker) SendText(ctx context.Context, chatID int64, text string) error {
	return w.send(chatID, text, "")
}

// Stop signals the worker to exit its reconnect loop and blocks until it
// has (or ctx expires first).
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.state == stateStopped || w.state == stateFailed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		// already closed by a concurrent Stop
	default:
		close(w.stopCh)
	}

	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("team %s: stop timed out", w.teamID)
	}
}
