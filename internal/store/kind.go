package store

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ChannelKind is the channel type recorded in an export. Only text channels
// carry message history into the archive; every other value is kept as-is
// so it can be reported, but is never materialized.
type ChannelKind int

const (
	// KindText is the kind of a guild text channel.
	KindText = ChannelKind(discordgo.ChannelTypeGuildText)
	// KindVoice is the kind of a guild voice channel.
	KindVoice = ChannelKind(discordgo.ChannelTypeGuildVoice)
)

// IsText reports whether channels of this kind are eligible for ingestion.
func (k ChannelKind) IsText() bool {
	return k == KindText
}

func (k ChannelKind) String() string {
	switch discordgo.ChannelType(k) {
	case discordgo.ChannelTypeGuildText:
		return "text"
	case discordgo.ChannelTypeGuildVoice:
		return "voice"
	case discordgo.ChannelTypeGuildCategory:
		return "category"
	case discordgo.ChannelTypeGuildNews:
		return "news"
	case discordgo.ChannelTypeGuildStageVoice:
		return "stage"
	case discordgo.ChannelTypeGuildForum:
		return "forum"
	default:
		return fmt.Sprintf("type %d", int(k))
	}
}
