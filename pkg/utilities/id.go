package utilities

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
// Used for opaque single-use tokens such as password reset tokens.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRequestID generates a snowflake ID string for tagging HTTP requests.
// The node ID comes from SNOWFLAKE_NODE, defaulting to node 1. If the node
// cannot be initialized it falls back to a KSUID so an ID is always returned.
func NewRequestID() string {
	nodeID := int64(1)
	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
