package usergroup

import (
	"errors"
	"slices"
	"time"
)

// Sentinel errors for the usergroup package.
var (
	ErrGroupNotFound = errors.New("usergroup not found")
	ErrNameRequired  = errors.New("usergroup name is required")
)

// Group is a named set of member emails and permitted device ids.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	Devices   []string  `json:"devices"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reports whether the email is an exact-match member.
func (g *Group) HasMember(email string) bool {
	return slices.Contains(g.Members, email)
}

// PermitsDevice reports whether the device id is in the group's device list.
func (g *Group) PermitsDevice(deviceID string) bool {
	return slices.Contains(g.Devices, deviceID)
}

// DeepCopy returns a copy sharing no slices with the original.
func (g *Group) DeepCopy() *Group {
	dup := *g
	dup.Members = slices.Clone(g.Members)
	dup.Devices = slices.Clone(g.Devices)
	return &dup
}

// Validate checks required fields.
func (g *Group) Validate() error {
	if g.Name == "" {
		return ErrNameRequired
	}
	return nil
}
