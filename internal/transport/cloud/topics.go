package cloud

import "fmt"

// TopicPrefix is the base of every relay topic. The full hierarchy is
// hearth/{server_id}/{category}/..., so the relay ACL can scope each
// hub to its own subtree.
const TopicPrefix = "hearth"

// Topics builds relay topics for one hub identity.
type Topics struct {
	ServerID string
}

// Command returns the topic carrying one named inbound command.
//
// Example: hearth/srv-1a2b/command/switchOn
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/%s/command/%s", TopicPrefix, t.ServerID, name)
}

// AllCommands returns a pattern matching every inbound command.
//
// Pattern: hearth/srv-1a2b/command/+
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/%s/command/+", TopicPrefix, t.ServerID)
}

// Reply returns the per-request reply topic.
//
// Example: hearth/srv-1a2b/reply/req-9f3c
func (t Topics) Reply(requestID string) string {
	return fmt.Sprintf("%s/%s/reply/%s", TopicPrefix, t.ServerID, requestID)
}

// Event returns the topic for one named broadcast event.
//
// Example: hearth/srv-1a2b/event/stateChanged
func (t Topics) Event(name string) string {
	return fmt.Sprintf("%s/%s/event/%s", TopicPrefix, t.ServerID, name)
}

// Status returns the hub's online/offline status topic. The LWT is
// registered here so apps see an unexpected disconnect.
//
// Example: hearth/srv-1a2b/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.ServerID)
}

// commandName extracts the command name from an inbound command topic,
// or "" when the topic is not a command topic.
func (t Topics) commandName(topic string) string {
	prefix := fmt.Sprintf("%s/%s/command/", TopicPrefix, t.ServerID)
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
