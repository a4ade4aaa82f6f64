package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	fullLogInterval = 24 * time.Hour
	realertInterval = time.Hour
)

// SlackClient posts monitor results to a slack channel. Without a token the
// messages are only logged.
type SlackClient struct {
	logger  zerolog.Logger
	client  *slack.Client
	channel string
	now     func() time.Time

	mtx         sync.Mutex
	lastFullLog time.Time
	lastAlerted map[string]time.Time
}

func NewSlackClient(logger zerolog.Logger, token, channel string, options ...slack.Option) *SlackClient {
	sc := &SlackClient{
		logger:      logger.With().Str("module", "slack").Logger(),
		channel:     channel,
		now:         time.Now,
		lastAlerted: make(map[string]time.Time),
	}
	if token != "" {
		sc.client = slack.New(token, options...)
	}
	return sc
}

// Notify sends the messages worth reporting. Once per fullLogInterval every
// result is sent. Otherwise only critical results are, and a critical result
// is repeated at most once per realertInterval.
func (sc *SlackClient) Notify(ctx context.Context, priceErrors []PriceError) error {
	messages := sc.selectMessages(priceErrors)
	if len(messages) == 0 {
		return nil
	}

	message := strings.Join(messages, "\n")
	if sc.client == nil {
		sc.logger.Info().Msg(message)
		return nil
	}

	_, _, err := sc.client.PostMessageContext(ctx, sc.channel, slack.MsgOptionText(message, false))
	if err != nil {
		sc.logger.Error().Err(err).Str("channel", sc.channel).Msg("failed to post slack message")
	}
	return err
}

func (sc *SlackClient) selectMessages(priceErrors []PriceError) []string {
	sc.mtx.Lock()
	defer sc.mtx.Unlock()

	now := sc.now()
	fullLog := false
	if sc.lastFullLog.Add(fullLogInterval).Before(now) {
		sc.lastFullLog = now
		fullLog = true
	}

	messages := []string{}
	for _, priceError := range priceErrors {
		key := priceError.Key()

		if !priceError.ErrorType.IsCritical() {
			// recovered, so the next failure alerts right away
			for et := range criticalErrorTypes {
				delete(sc.lastAlerted, PriceError{ErrorType: et, Pair: priceError.Pair}.Key())
			}
			if fullLog {
				messages = append(messages, priceError.Message)
			}
			continue
		}

		last, alerted := sc.lastAlerted[key]
		if fullLog || !alerted || last.Add(realertInterval).Before(now) {
			sc.lastAlerted[key] = now
			messages = append(messages, priceError.Message)
		}
	}
	return messages
}
