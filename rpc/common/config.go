package common

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport settings
// --------------------------------------------------------------------------

// SocketConf holds socket buffer sizes. Zero keeps the OS default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific settings. They are ignored by other transports.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative keeps the OS default
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig configures the transport of a single store client.
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// ClientConfig configures a store client connecting to one bucket.
type ClientConfig struct {
	TimeoutSecond int

	// Credentials of the bucket. Sent once per connection (tcp, unix) or with
	// every request as basic auth (http). An empty username disables authentication.
	Username string
	Password string

	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))
	if c.Username != "" {
		addField("Username", c.Username)
		addField("Password", strings.Repeat("*", 8))
	} else {
		addField("Authentication", "disabled")
	}

	// Socket settings
	addSection("Socket")
	addField("Write Buffer Size", strconv.Itoa(c.Transport.WriteBufferSize))
	addField("Read Buffer Size", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig configures the listening side of a transport.
type ServerTransportConfig struct {
	Endpoint       string
	WorkersPerConn int
	BufferSize     int
	SocketConf
	TCPConf
}

// ServerConfig configures an RPC server exposing one or more buckets.
type ServerConfig struct {
	TimeoutSecond int
	LogLevel      string

	// Credentials maps usernames to passwords. An empty map disables authentication.
	Credentials map[string]string

	Transport ServerTransportConfig
}

// Authenticate checks a username/password pair against the configured credentials.
func (c *ServerConfig) Authenticate(username, password string) error {
	if len(c.Credentials) == 0 {
		return nil
	}
	expected, ok := c.Credentials[username]
	if !ok || expected != password {
		return fmt.Errorf("authentication failed for user %q", username)
	}
	return nil
}

// String returns a formatted string representation of the server configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Users")
	if len(c.Credentials) == 0 {
		addField("Authentication", "disabled")
	}
	users := make([]string, 0, len(c.Credentials))
	for u := range c.Credentials {
		users = append(users, u)
	}
	sort.Strings(users)
	for i, u := range users {
		addField(strconv.Itoa(i), u)
	}

	return sb.String()
}
