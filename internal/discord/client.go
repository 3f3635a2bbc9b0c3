// Package discord delivers alert messages through the Discord REST API.
// Only message creation is used; no gateway connection is opened.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Client sends channel messages with a token-bucket send throttle.
type Client struct {
	session *discordgo.Session
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Discord client. sendsPerSecond bounds outbound message
// creation across all destinations.
func New(token string, sendsPerSecond float64, logger *slog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Client.Timeout = 30 * time.Second

	return &Client{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(sendsPerSecond), 1),
		logger:  logger,
	}, nil
}

// Send posts one alert to a channel, mentioning the given role. The body is
// prefixed with the role mention; embeds and link previews are suppressed.
// The nonce is enforced server-side, so an accidental duplicate submission
// for the same occurrence is rejected rather than double-posted.
func (c *Client) Send(ctx context.Context, channelID, roleID, body, nonce string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@&%s> %s", roleID, body),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: []string{roleID},
		},
		Flags:        discordgo.MessageFlagsSuppressEmbeds,
		Nonce:        nonce,
		EnforceNonce: true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send message to channel %s: %w", channelID, err)
	}
	c.logger.Debug("Message sent", "channel_id", channelID, "nonce", nonce)
	return nil
}
