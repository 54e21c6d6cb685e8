package bus

import "strings"

// RoutingKey names a conversation: the channel followed by the non-empty
// scope parts (chat, thread, ...), joined with ":".
func RoutingKey(channel Channel, scope ...string) string {
	var b strings.Builder
	b.WriteString(string(channel))
	for _, s := range scope {
		if s == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// ParseRoutingKey splits a key into its channel and the remaining scope.
func ParseRoutingKey(key string) (Channel, string) {
	channel, scope, _ := strings.Cut(key, ":")
	return Channel(channel), scope
}
