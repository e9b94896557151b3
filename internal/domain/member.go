package domain

import "time"

type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusSuspended MemberStatus = "suspended"
)

// Member is a library member. Profile and credential fields live with the
// auth collaborator; this record carries what lending decisions need.
// FineBalance is in whole currency units and never goes negative.
type Member struct {
	ID          string
	Email       string
	Name        string
	Role        MemberRole
	Status      MemberStatus
	FineBalance int64
	CreatedAt   time.Time
}
