// Package telegram delivers watchlist alerts via the Telegram Bot API: an
// outage alert when the snapshot provider starts failing (and a recovery
// note when it comes back), plus a periodic digest of the biggest movers.
//
// Messages use MarkdownV2 and are sent with linear-backoff retries to ride
// out rate limiting and transient network failures.
package telegram

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// Client sends watchlist notifications to one chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	topMovers      int
	moversCooldown time.Duration

	mu         sync.Mutex
	outageOpen bool
	lastDigest map[string]time.Time // symbol -> last time it appeared in a digest
	now        func() time.Time
}

// NewClient creates a Telegram client for the given bot and chat.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, topMovers int, moversCooldown time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	if topMovers <= 0 {
		topMovers = 5
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		topMovers:      topMovers,
		moversCooldown: moversCooldown,
		lastDigest:     make(map[string]time.Time),
		now:            time.Now,
	}, nil
}

// ObserveSnapshot inspects one poll cycle's result and sends whatever alerts
// it warrants. It is called once per cycle from the main loop; send failures
// are returned but leave the outage state updated, so a flapping network
// does not repeat the same alert.
func (c *Client) ObserveSnapshot(result models.SnapshotResult) error {
	var messages []string

	c.mu.Lock()
	failing := result.FromFallback
	if failing && !c.outageOpen {
		c.outageOpen = true
		messages = append(messages, c.formatOutage(result))
	} else if !failing && c.outageOpen {
		c.outageOpen = false
		messages = append(messages, c.formatRecovery(result))
	}
	var digest string
	var digested []string
	if !failing {
		digest, digested = c.formatMoversLocked(result)
	}
	c.mu.Unlock()

	for _, message := range messages {
		if err := c.send(message); err != nil {
			return err
		}
	}

	// The cooldown is consumed only once the digest is delivered; a failed
	// send leaves the movers eligible for the next cycle.
	if digest != "" {
		if err := c.send(digest); err != nil {
			return err
		}
		c.mu.Lock()
		c.recordDigestLocked(digested)
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) send(message string) error {
	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) formatOutage(result models.SnapshotResult) string {
	reason := "provider unreachable"
	if result.Error502 {
		reason = "provider returned 502"
	}
	dateStr := escapeMarkdownV2(result.FetchedAt.Format("2006-01-02 15:04:05"))
	return fmt.Sprintf("⚠️ *Snapshot outage*\n\n%s\n📅 Since: %s\nShowing placeholder data until the provider recovers\\.",
		escapeMarkdownV2(reason), dateStr)
}

func (c *Client) formatRecovery(result models.SnapshotResult) string {
	dateStr := escapeMarkdownV2(result.FetchedAt.Format("2006-01-02 15:04:05"))
	return fmt.Sprintf("✅ *Snapshot recovered*\n\n📅 At: %s\nLive quotes for %d symbols are back\\.",
		dateStr, len(result.Items))
}

// formatMoversLocked builds the top movers digest and the symbols it names,
// or returns "" when every candidate is still inside its cooldown window.
// It does not touch the cooldown map; recordDigestLocked does that once the
// digest has actually been delivered. Caller holds c.mu.
func (c *Client) formatMoversLocked(result models.SnapshotResult) (string, []string) {
	type mover struct {
		item models.MarketItem
		pct  float64
	}

	var movers []mover
	for _, item := range result.Items {
		pct, err := strconv.ParseFloat(item.PercentChange, 64)
		if err != nil || pct == 0 {
			continue
		}
		movers = append(movers, mover{item: item, pct: pct})
	}
	sort.Slice(movers, func(i, j int) bool {
		return math.Abs(movers[i].pct) > math.Abs(movers[j].pct)
	})
	if len(movers) > c.topMovers {
		movers = movers[:c.topMovers]
	}

	now := c.now()
	var lines []string
	var symbols []string
	for _, m := range movers {
		if last, ok := c.lastDigest[m.item.Symbol]; ok && now.Sub(last) < c.moversCooldown {
			continue
		}
		symbols = append(symbols, m.item.Symbol)

		emoji := "📈"
		if m.pct < 0 {
			emoji = "📉"
		}
		lines = append(lines, fmt.Sprintf("%s *%s* %s \\(%s\\)",
			emoji,
			escapeMarkdownV2(m.item.Symbol),
			escapeMarkdownV2(m.item.PercentChange+"%"),
			escapeMarkdownV2(m.item.LastPrice)))
	}
	if len(lines) == 0 {
		return "", nil
	}

	dateStr := escapeMarkdownV2(now.Format("2006-01-02 15:04:05"))
	return fmt.Sprintf("🚨 *Top Movers*\n\n📅 %s\n\n%s", dateStr, strings.Join(lines, "\n")), symbols
}

// recordDigestLocked stamps the cooldown for symbols that made it into a
// delivered digest. Caller holds c.mu.
func (c *Client) recordDigestLocked(symbols []string) {
	now := c.now()
	for _, symbol := range symbols {
		c.lastDigest[symbol] = now
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}
