package cloud

import (
	"strings"
	"testing"

	"github.com/hearthwire/hearth-core/internal/infrastructure/config"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{ServerID: "srv-1a2b"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command", topics.Command("switchOn"), "hearth/srv-1a2b/command/switchOn"},
		{"all commands", topics.AllCommands(), "hearth/srv-1a2b/command/+"},
		{"reply", topics.Reply("req-9f3c"), "hearth/srv-1a2b/reply/req-9f3c"},
		{"event", topics.Event("stateChanged"), "hearth/srv-1a2b/event/stateChanged"},
		{"status", topics.Status(), "hearth/srv-1a2b/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCommandNameExtraction(t *testing.T) {
	topics := Topics{ServerID: "srv-1a2b"}

	tests := []struct {
		topic string
		want  string
	}{
		{"hearth/srv-1a2b/command/switchOn", "switchOn"},
		{"hearth/srv-1a2b/command/", ""},
		{"hearth/srv-1a2b/event/stateChanged", ""},
		{"hearth/other/command/switchOn", ""},
		{"garbage", ""},
	}

	for _, tt := range tests {
		if got := topics.commandName(tt.topic); got != tt.want {
			t.Errorf("commandName(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestClientIDCombinesIdentity(t *testing.T) {
	hub := config.HubConfig{ServerID: "srv-1a2b", InstallID: "ins-3c4d"}
	if got := clientID(hub); got != "srv-1a2b-ins-3c4d" {
		t.Errorf("clientID() = %q, want srv-1a2b-ins-3c4d", got)
	}
}

func TestBuildClientOptionsBrokerScheme(t *testing.T) {
	hub := config.HubConfig{ServerID: "srv-1a2b", InstallID: "ins-3c4d"}

	plain := config.CloudConfig{Broker: config.CloudBrokerConfig{Host: "relay.example.com", Port: 1883}}
	opts := buildClientOptions(plain, hub)
	if got := opts.Servers[0].String(); got != "tcp://relay.example.com:1883" {
		t.Errorf("broker URL = %q, want tcp scheme", got)
	}

	secure := config.CloudConfig{Broker: config.CloudBrokerConfig{Host: "relay.example.com", Port: 8883, TLS: true}}
	opts = buildClientOptions(secure, hub)
	if got := opts.Servers[0].String(); got != "ssl://relay.example.com:8883" {
		t.Errorf("broker URL = %q, want ssl scheme", got)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS enabled but no TLS config set")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("srv-1a2b-ins-3c4d")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, "srv-1a2b-ins-3c4d") {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("srv-1a2b-ins-3c4d")
	if !strings.Contains(offline, `"status":"offline"`) || !strings.Contains(offline, "graceful_shutdown") {
		t.Errorf("offline payload = %s", offline)
	}
}

func TestCloseNilClient(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}
