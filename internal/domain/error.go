package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSelfReferral       = errors.New("user cannot refer themselves")
	ErrDuplicateReferral  = errors.New("referral already recorded for this user")
	ErrAlreadyReferred    = errors.New("user was already referred by someone else")
	ErrRewardAlreadyGiven = errors.New("referral reward already given")
	ErrNotGroupMember     = errors.New("user is not a member of the required group")
	ErrUserBanned         = errors.New("user is banned")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
