package membership

import (
	"context"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Checker answers whether a user is in the required channel.
type Checker interface {
	IsMember(ctx context.Context, userID int64) bool
}

// ChatMemberGetter is the slice of the Telegram API the channel checker calls.
type ChatMemberGetter interface {
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

type ChannelChecker struct {
	api     ChatMemberGetter
	channel string
}

func NewChannelChecker(api ChatMemberGetter, channelUsername string) *ChannelChecker {
	return &ChannelChecker{api: api, channel: channelUsername}
}

// IsMember treats any API failure as "not a member".
func (c *ChannelChecker) IsMember(ctx context.Context, userID int64) bool {
	member, err := c.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.Username(c.channel),
		UserID: userID,
	})
	if err != nil {
		log.Printf("Failed to get chat member %d in %s: %v", userID, c.channel, err)
		return false
	}
	return IsJoinedStatus(member.MemberStatus())
}

// IsJoinedStatus is true for statuses that count as being in the channel.
func IsJoinedStatus(status string) bool {
	switch status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}
