package importer

import (
	"html"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

// emotePattern matches a custom emote tag such as <:name:123> or
// <a:name:123> after HTML escaping.
var emotePattern = regexp.MustCompile(`&lt;(a?):(\w+):(\d+)&gt;`)

// RenderContent HTML-escapes raw message text and replaces custom emote tags
// with image elements pointing at the emoji CDN. Animated emotes (the "a:"
// prefix) link the GIF rendition.
func RenderContent(raw string) string {
	escaped := html.EscapeString(raw)
	return emotePattern.ReplaceAllStringFunc(escaped, func(tag string) string {
		m := emotePattern.FindStringSubmatch(tag)
		animated, name, id := m[1] == "a", m[2], m[3]

		src := discordgo.EndpointEmoji(id)
		if animated {
			src = discordgo.EndpointEmojiAnimated(id)
		}
		return `<img class="emote" alt=":` + name + `:" src="` + src + `"/>`
	})
}
