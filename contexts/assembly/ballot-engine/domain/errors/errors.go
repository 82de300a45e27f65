package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidResolutionInput = errors.New("invalid resolution input")
	ErrInvalidEligibility     = errors.New("invalid eligibility rules")
	ErrResolutionNotFound     = errors.New("resolution not found")
	ErrResolutionNotActive    = errors.New("resolution is not active")
	ErrInvalidOption          = errors.New("option does not belong to resolution")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrInvalidTransition      = errors.New("invalid resolution status transition")
	ErrOptionsLocked          = errors.New("options cannot change once ballots exist")
	ErrResultsHidden          = errors.New("results are not visible")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthenticated        = errors.New("caller identity is required")

	ErrNotEligible = errors.New("not eligible to vote")

	ErrRoleNotEligible = fmt.Errorf("%w: your role is not eligible to vote", ErrNotEligible)
	ErrTeamNotEligible = fmt.Errorf("%w: your team is not eligible to vote", ErrNotEligible)
	ErrTeamRequired    = fmt.Errorf("%w: you must belong to a team (delegation)", ErrNotEligible)

	ErrRepositoryInvariantBroke = errors.New("repository invariant broken")
)
