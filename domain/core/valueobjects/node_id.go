package valueobjects

import (
	"errors"
	"strconv"
)

// NodeID is a value object representing a unique node identifier.
// Ids are dense non-negative integers assigned in creation order by the
// tree aggregate; the root of a fresh tree is always id 0.
// Value objects are immutable and have no identity beyond their value.
type NodeID struct {
	value int
}

// NewNodeID creates a NodeID from an allocated integer
func NewNodeID(id int) (NodeID, error) {
	if id < 0 {
		return NodeID{}, errors.New("node ID cannot be negative")
	}
	return NodeID{value: id}, nil
}

// ParseNodeID creates a NodeID from its string form
func ParseNodeID(s string) (NodeID, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return NodeID{}, errors.New("node ID must be an integer")
	}
	return NewNodeID(v)
}

// Int returns the integer value of the NodeID
func (id NodeID) Int() int {
	return id.value
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return strconv.Itoa(id.value)
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(id.value)), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.New("NodeID must be an integer")
	}
	if v < 0 {
		return errors.New("NodeID cannot be negative")
	}
	id.value = v
	return nil
}
